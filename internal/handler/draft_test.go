package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmicianjur/pelantikan-api/internal/importer"
	"github.com/pmicianjur/pelantikan-api/internal/model"
	"github.com/pmicianjur/pelantikan-api/internal/pricing"
	"github.com/pmicianjur/pelantikan-api/internal/wizard"
)

// fakePhotoStore implements storage.PhotoStore in memory.
type fakePhotoStore struct {
	staged  []string
	removed []string
}

func (f *fakePhotoStore) StagePhoto(_ context.Context, fullName string, _ io.Reader, _ int64, _ string) (string, error) {
	key := fmt.Sprintf("pending/%d-%s.jpg", len(f.staged), fullName)
	f.staged = append(f.staged, key)
	return key, nil
}

func (f *fakePhotoStore) PromotePhoto(_ context.Context, stagedKey string, registrationID uint64, fullName string) (string, error) {
	return fmt.Sprintf("https://storage/peserta/%d/%s.jpg", registrationID, fullName), nil
}

func (f *fakePhotoStore) UploadProof(_ context.Context, registrationID uint64, _ io.Reader, _ int64, _ string) (string, error) {
	return fmt.Sprintf("https://storage/bukti/%d.jpg", registrationID), nil
}

func (f *fakePhotoStore) RemoveStaged(_ context.Context, stagedKey string) error {
	f.removed = append(f.removed, stagedKey)
	return nil
}

// fakePending records staged transactions.
type fakePending struct {
	err  error
	txns []*model.PendingTransaction
}

func (f *fakePending) Create(_ context.Context, txn *model.PendingTransaction) error {
	if f.err != nil {
		return f.err
	}
	f.txns = append(f.txns, txn)
	return nil
}

func newDraftHandler(gw *fakeGateway) (*DraftHandler, *wizard.MemoryStore, *fakePending) {
	store := wizard.NewMemoryStore(time.Hour)
	pending := &fakePending{}
	h := NewDraftHandler(store, &fakePhotoStore{}, pending, gw, pricing.Default, 24*time.Hour)
	return h, store, pending
}

func draftRequest(h func(echo.Context) error, method, target, body, draftID string) *httptest.ResponseRecorder {
	e := echo.New()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if draftID != "" {
		c.SetParamNames("id")
		c.SetParamValues(draftID)
	}
	if err := h(c); err != nil {
		panic(err)
	}
	return rec
}

// seedDraft saves a fully filled draft and returns its id.
func seedDraft(t *testing.T, store wizard.Store, step wizard.Step) string {
	t.Helper()
	plot := uint64(7)
	d := wizard.New("d-1")
	d.Step = step
	d.SchoolName = "SMA 1 Cianjur"
	d.Supervisor = "Pak Joko"
	d.WhatsApp = "081234567890"
	d.Category = model.CategoryWira
	d.Roster = importer.Roster{
		Participants: []importer.ParticipantEntry{
			{FullName: "Budi Santoso", PhotoRef: "pending/1-budi.jpg", PhotoStatus: importer.PhotoMatched},
			{FullName: "Siti Aminah", PhotoRef: "pending/2-siti.jpg", PhotoStatus: importer.PhotoMatched},
			{FullName: "Andi Wijaya", PhotoRef: "pending/3-andi.jpg", PhotoStatus: importer.PhotoMatched},
		},
		Chaperones: []importer.ChaperoneEntry{{FullName: "Bu Rina"}},
	}
	d.TentOption = pricing.TentCommittee
	d.TentCapacity = 20
	d.PlotID = &plot
	require.NoError(t, store.Save(context.Background(), d))
	return d.ID
}

func TestDraftCreate(t *testing.T) {
	h, store, _ := newDraftHandler(&fakeGateway{})
	rec := draftRequest(h.Create, http.MethodPost, "/api/draft", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var view struct {
		ID       string `json:"id"`
		StepName string `json:"step_name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "school_info", view.StepName)

	_, err := store.Get(context.Background(), view.ID)
	assert.NoError(t, err)
}

func TestDraftGetUnknownID(t *testing.T) {
	h, _, _ := newDraftHandler(&fakeGateway{})
	rec := draftRequest(h.Get, http.MethodGet, "/api/draft/nope", "", "nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDraftUpdateCategoryChangeClearsPlot(t *testing.T) {
	h, store, _ := newDraftHandler(&fakeGateway{})
	id := seedDraft(t, store, wizard.StepTentAndLand)

	rec := draftRequest(h.Update, http.MethodPut, "/api/draft/"+id, `{"kategori":"Madya"}`, id)
	require.Equal(t, http.StatusOK, rec.Code)

	d, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryMadya, d.Category)
	assert.Nil(t, d.PlotID, "changing category must drop the plot selection")
}

func TestDraftUpdateRejectsUnknownCategory(t *testing.T) {
	h, store, _ := newDraftHandler(&fakeGateway{})
	id := seedDraft(t, store, wizard.StepSchoolInfo)

	rec := draftRequest(h.Update, http.MethodPut, "/api/draft/"+id, `{"kategori":"Siaga"}`, id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDraftAdvanceGuardFailure(t *testing.T) {
	h, store, _ := newDraftHandler(&fakeGateway{})
	d := wizard.New("d-2")
	require.NoError(t, store.Save(context.Background(), d))

	rec := draftRequest(h.Advance, http.MethodPost, "/api/draft/d-2/advance", "", "d-2")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "required")

	got, err := store.Get(context.Background(), "d-2")
	require.NoError(t, err)
	assert.Equal(t, wizard.StepSchoolInfo, got.Step)
}

func TestDraftUploadPhotos(t *testing.T) {
	store := wizard.NewMemoryStore(time.Hour)
	photos := &fakePhotoStore{}
	h := NewDraftHandler(store, photos, &fakePending{}, &fakeGateway{}, pricing.Default, 24*time.Hour)

	d := wizard.New("d-3")
	d.Step = wizard.StepParticipantData
	d.Roster = importer.Roster{Participants: []importer.ParticipantEntry{
		{FullName: "Budi Santoso", PhotoStatus: importer.AwaitingPhoto},
		{FullName: "Siti Aminah", PhotoStatus: importer.AwaitingPhoto},
	}}
	require.NoError(t, store.Save(context.Background(), d))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"budi santoso.jpg", "nobody.jpg"} {
		fw, err := mw.CreateFormFile("photos", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("jpeg-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/draft/d-3/photos", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("d-3")
	require.NoError(t, h.UploadPhotos(c))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Matched  int `json:"matched"`
		Total    int `json:"total"`
		WithFoto int `json:"with_foto"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Matched)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.WithFoto)

	// Both files were staged, and the unmatched one was cleaned up again.
	assert.Len(t, photos.staged, 2)
	assert.Len(t, photos.removed, 1)

	got, err := store.Get(context.Background(), "d-3")
	require.NoError(t, err)
	assert.Equal(t, importer.PhotoMatched, got.Roster.Participants[0].PhotoStatus)
	assert.Equal(t, importer.AwaitingPhoto, got.Roster.Participants[1].PhotoStatus)
}

func TestDraftUploadPhotosRequiresFiles(t *testing.T) {
	h, store, _ := newDraftHandler(&fakeGateway{})
	id := seedDraft(t, store, wizard.StepParticipantData)

	rec := draftRequest(h.UploadPhotos, http.MethodPost, "/api/draft/"+id+"/photos", "", id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDraftSubmit(t *testing.T) {
	gw := &fakeGateway{token: "snap-token"}
	h, store, pending := newDraftHandler(gw)
	id := seedDraft(t, store, wizard.StepConfirmation)

	rec := draftRequest(h.Submit, http.MethodPost, "/api/draft/"+id+"/submit", "", id)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OrderID     string `json:"order_id"`
		Token       string `json:"token"`
		GrossAmount int64  `json:"gross_amount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.OrderID)
	assert.Equal(t, "snap-token", resp.Token)
	assert.Equal(t, int64(530000), resp.GrossAmount)

	require.Len(t, pending.txns, 1)
	assert.Equal(t, resp.OrderID, pending.txns[0].OrderID)
	assert.Equal(t, int64(530000), pending.txns[0].GrossAmount)

	var sub wizard.Submission
	require.NoError(t, json.Unmarshal(pending.txns[0].Payload, &sub))
	assert.Equal(t, "SMA 1 Cianjur", sub.SchoolName)
	require.Len(t, sub.Participants, 3)

	_, err := store.Get(context.Background(), id)
	assert.ErrorIs(t, err, wizard.ErrDraftNotFound, "a submitted draft is gone")
}

func TestDraftSubmitBeforeConfirmation(t *testing.T) {
	h, store, pending := newDraftHandler(&fakeGateway{token: "snap-token"})
	id := seedDraft(t, store, wizard.StepTentAndLand)

	rec := draftRequest(h.Submit, http.MethodPost, "/api/draft/"+id+"/submit", "", id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, pending.txns)
}

func TestDraftSubmitGatewayFailureKeepsDraft(t *testing.T) {
	gw := &fakeGateway{tokenErr: assert.AnError}
	h, store, _ := newDraftHandler(gw)
	id := seedDraft(t, store, wizard.StepConfirmation)

	rec := draftRequest(h.Submit, http.MethodPost, "/api/draft/"+id+"/submit", "", id)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	_, err := store.Get(context.Background(), id)
	assert.NoError(t, err, "the registrant must be able to retry")
}
