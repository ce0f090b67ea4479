package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitetrack/internal/domain"
	apperror "sitetrack/internal/errors"
	"sitetrack/internal/pkg/logger"
	"sitetrack/internal/query"
)

func TestRespond_Success(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)

	Respond(rec, req, logger.NewNop(), map[string]string{"ok": "sim"}, nil, http.StatusOK)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":"sim"}`, rec.Body.String())
}

func TestRespond_ScheduleErrorCarriesKindAndIndex(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/tasks", nil)
	err := apperror.NewScheduleError(apperror.ScheduleDuplicateDate, 1, "Data repetida.")

	Respond(rec, req, logger.NewNop(), nil, err, http.StatusCreated)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body domain.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SCHEDULE_ERROR", body.Category)
	assert.Equal(t, "DUPLICATE_DATE", body.Kind)
	require.NotNil(t, body.SlotIndex)
	assert.Equal(t, 1, *body.SlotIndex)
}

func TestNewErrorResponse_NoSlotOmitsIndex(t *testing.T) {
	resp := NewErrorResponse(apperror.NewScheduleError(apperror.ScheduleMissingSlot, apperror.NoSlot, "Adicione um horário."))

	assert.Equal(t, "MISSING_SLOT", resp.Kind)
	assert.Nil(t, resp.SlotIndex)
}

func TestRespond_InternalError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)

	Respond(rec, req, logger.NewNop(), nil, apperror.NewDBError("falha", fmt.Errorf("conexão perdida")), http.StatusOK)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "PERSISTENCE_ERROR")
}

type payload struct {
	Name string `json:"name"`
}

func TestDecodeEntity_JSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/products", strings.NewReader(`{"name":"Serra"}`))
	req.Header.Set("Content-Type", "application/json")

	var p payload
	files, err := DecodeEntity(httptest.NewRecorder(), req, 1<<20, &p)

	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, "Serra", p.Name)
}

func TestDecodeEntity_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/products", strings.NewReader(`{name`))

	var p payload
	_, err := DecodeEntity(httptest.NewRecorder(), req, 1<<20, &p)

	var ve *apperror.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func multipartRequest(t *testing.T, payloadJSON string, images int) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField(PayloadField, payloadJSON))
	for i := 0; i < images; i++ {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="foto%d.png"`, ImagesField, i))
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/products", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDecodeEntity_Multipart(t *testing.T) {
	req := multipartRequest(t, `{"name":"Betoneira"}`, 2)

	var p payload
	files, err := DecodeEntity(httptest.NewRecorder(), req, 1<<20, &p)

	require.NoError(t, err)
	assert.Equal(t, "Betoneira", p.Name)
	require.Len(t, files, 2)
	assert.Equal(t, "foto0.png", files[0].Name)
	assert.Equal(t, "image/png", files[0].ContentType)
}

func TestDecodeEntity_TooManyImages(t *testing.T) {
	req := multipartRequest(t, `{"name":"Betoneira"}`, domain.MaxImagesPerEntity+1)

	var p payload
	_, err := DecodeEntity(httptest.NewRecorder(), req, 1<<20, &p)

	var ve *apperror.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestPathIndex(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/v1/drafts/d1/slots/2", nil)
	req.SetPathValue("index", "2")
	idx, err := PathIndex(req, "index")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	req.SetPathValue("index", "dois")
	_, err = PathIndex(req, "index")
	assert.Error(t, err)
}

func TestApplyListQuery(t *testing.T) {
	type filters struct{ Users []string }
	parse := func(q url.Values) filters { return filters{Users: CSV(q, "users")} }

	state := query.NewListState[filters]()
	state.SetPage(4)

	ApplyListQuery(&state, url.Values{"sort": {"oldest"}, "view": {"list"}}, []string{"users"}, parse)
	assert.Equal(t, 4, state.Params.Page, "ordenação e modo de exibição mantêm a página")
	assert.Equal(t, query.ViewList, state.View)

	ApplyListQuery(&state, url.Values{"users": {"a,b", "c"}}, []string{"users"}, parse)
	assert.Equal(t, 1, state.Params.Page, "filtro volta para a página 1")
	assert.Equal(t, []string{"a", "b", "c"}, state.Params.Filters.Users)

	ApplyListQuery(&state, url.Values{"view": {"mosaico"}, "page": {"x"}}, nil, parse)
	assert.Equal(t, query.ViewList, state.View)
	assert.Equal(t, 1, state.Params.Page)
}

func TestApplyListQuery_SameFiltersKeepPage(t *testing.T) {
	parse := func(q url.Values) query.TaskFilters { return query.TaskFilters{HasImages: TriState(q, "has_images")} }
	keys := []string{"status", "has_images", "users"}

	state := query.NewListState[query.TaskFilters]()
	ApplyListQuery(&state, url.Values{"has_images": {"true"}}, keys, parse)
	ApplyListQuery(&state, url.Values{"page": {"3"}}, keys, parse)
	ApplyListQuery(&state, url.Values{"has_images": {"true"}}, keys, parse)
	assert.Equal(t, 3, state.Params.Page, "reconexão com os mesmos filtros mantém a página")

	ApplyListQuery(&state, url.Values{"has_images": {"false"}}, keys, parse)
	assert.Equal(t, 1, state.Params.Page)
}

func TestTriState(t *testing.T) {
	q := url.Values{"a": {"true"}, "b": {"0"}, "c": {"talvez"}}

	require.NotNil(t, TriState(q, "a"))
	assert.True(t, *TriState(q, "a"))
	require.NotNil(t, TriState(q, "b"))
	assert.False(t, *TriState(q, "b"))
	assert.Nil(t, TriState(q, "c"))
	assert.Nil(t, TriState(q, "d"))
}

func TestStreamSSE_WritesSnapshotsUntilClosed(t *testing.T) {
	ch := make(chan query.Page[string], 2)
	ch <- query.Page[string]{Items: []string{"a"}, TotalCount: 1, TotalPages: 1, Page: 1, PageSize: 10}
	close(ch)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/v1/products/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	StreamSSE(rec, req, logger.NewNop(), (<-chan query.Page[string])(ch))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: snapshot\ndata: {\"items\":[\"a\"]")
}
