package salonapi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantShape Shape
		wantData  string
		wantErr   bool
	}{
		{name: "empty body", body: "", wantShape: ShapeBare, wantData: `{}`},
		{name: "bare object", body: `{"id":"1","name":"Ana"}`, wantShape: ShapeBare, wantData: `{"id":"1","name":"Ana"}`},
		{name: "bare array", body: `[{"id":1}]`, wantShape: ShapeBare, wantData: `[{"id":1}]`},
		{name: "envelope", body: `{"data":{"id":"1"},"traceId":"t-1"}`, wantShape: ShapeEnvelope, wantData: `{"id":"1"}`},
		{name: "envelope with null data", body: `{"data":null}`, wantShape: ShapeEnvelope, wantData: `null`},
		{name: "invalid", body: `{"data":`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseResult([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantShape, res.Shape)
			assert.JSONEq(t, tt.wantData, string(res.Data))
		})
	}
}

func TestParseResult_EnvelopeMetadata(t *testing.T) {
	res, err := ParseResult([]byte(`{
		"data": [],
		"meta": {"currentPage": 2, "pageSize": 5, "totalCount": 11, "hasNextPage": true},
		"traceId": "abc",
		"success": false,
		"message": "partial"
	}`))
	require.NoError(t, err)
	require.NotNil(t, res.Meta)
	assert.Equal(t, 2, *res.Meta.Page)
	assert.Equal(t, 5, *res.Meta.Size)
	assert.Equal(t, 11, *res.Meta.Total)
	assert.True(t, *res.Meta.HasNext)
	assert.Nil(t, res.Meta.HasPrevious)
	assert.Nil(t, res.Meta.TotalPages)
	assert.Equal(t, "abc", res.TraceID)
	require.NotNil(t, res.Success)
	assert.False(t, *res.Success)
	assert.Equal(t, "partial", res.Message)
}

func TestResultDecode_EitherShape(t *testing.T) {
	for _, body := range []string{
		`{"id":7,"name":"Ana"}`,
		`{"data":{"id":"7","name":"Ana"}}`,
	} {
		res, err := ParseResult([]byte(body))
		require.NoError(t, err)
		var c Customer
		require.NoError(t, res.Decode(&c))
		assert.Equal(t, ID("7"), c.ID)
		assert.Equal(t, "Ana", c.Name)
	}
}

func TestDecodePage_DerivesMissingFlags(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		query      PageQuery
		wantNext   bool
		wantPrev   bool
		total      int
		totalPages int
	}{
		{
			name:     "first of three",
			body:     `{"data":[{"id":1},{"id":2}],"meta":{"page":1,"size":2,"total":5}}`,
			query:    PageQuery{Page: 1, Size: 2},
			wantNext: true, wantPrev: false, total: 5, totalPages: 3,
		},
		{
			name:     "last page exact",
			body:     `{"data":[{"id":5},{"id":6}],"meta":{"page":3,"size":2,"total":6}}`,
			query:    PageQuery{Page: 3, Size: 2},
			wantNext: false, wantPrev: true, total: 6, totalPages: 3,
		},
		{
			name:     "bare array short page",
			body:     `[{"id":1}]`,
			query:    PageQuery{Page: 2, Size: 10},
			wantNext: false, wantPrev: true, total: 11, totalPages: 2,
		},
		{
			name:     "bare array full page",
			body:     `[{"id":1},{"id":2}]`,
			query:    PageQuery{Page: 1, Size: 2},
			wantNext: true, wantPrev: false, total: 0, totalPages: 0,
		},
		{
			name:     "envelope without meta full page",
			body:     `{"data":[{"id":3},{"id":4}]}`,
			query:    PageQuery{Page: 2, Size: 2},
			wantNext: true, wantPrev: true, total: 0, totalPages: 0,
		},
		{
			name:     "bare array empty first page",
			body:     `[]`,
			query:    PageQuery{Page: 1, Size: 2},
			wantNext: false, wantPrev: false, total: 0, totalPages: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseResult([]byte(tt.body))
			require.NoError(t, err)
			page, err := DecodePage[Customer](res, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.total, page.Total)
			assert.Equal(t, tt.totalPages, page.TotalPages)
			assert.Equal(t, tt.wantNext, page.HasNext)
			assert.Equal(t, tt.wantPrev, page.HasPrevious)
			if page.TotalPages > 0 || len(page.Items) < page.Size {
				assert.Equal(t, page.Page*page.Size < page.Total, page.HasNext)
			}
			assert.Equal(t, page.Page > 1, page.HasPrevious)
			assert.True(t, page.Success)
		})
	}
}

func TestDecodePage_TrustsServerFlags(t *testing.T) {
	res, err := ParseResult([]byte(`{"data":[],"meta":{"page":1,"size":10,"total":100,"hasNext":false,"hasPrevious":true,"totalPages":10}}`))
	require.NoError(t, err)
	page, err := DecodePage[Staff](res, PageQuery{})
	require.NoError(t, err)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrevious)
	assert.Equal(t, 10, page.TotalPages)
	assert.Empty(t, page.Items)
}

func TestDecodeList_RejectsObjects(t *testing.T) {
	res, err := ParseResult([]byte(`{"id":1}`))
	require.NoError(t, err)
	_, err = DecodeList[Site](res)
	require.Error(t, err)

	res, err = ParseResult([]byte(`{"data":null}`))
	require.NoError(t, err)
	sites, err := DecodeList[Site](res)
	require.NoError(t, err)
	assert.NotNil(t, sites)
	assert.Empty(t, sites)
}

func TestPageQuery_Normalized(t *testing.T) {
	assert.Equal(t, PageQuery{Page: 1, Size: DefaultPageSize}, PageQuery{}.Normalized())
	assert.Equal(t, MaxPageSize, PageQuery{Page: 3, Size: 1000}.Normalized().Size)

	body := PageQuery{Page: 2, Size: 5, Filters: map[string]any{"phone": "0901"}}.body()
	assert.Equal(t, 2, body["page"])
	assert.Equal(t, 5, body["size"])
	assert.Equal(t, "0901", body["phone"])
}

func TestID_UnmarshalNumberOrString(t *testing.T) {
	var got struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12,"b":"x-1","c":null}`), &got))
	assert.Equal(t, ID("12"), got.A)
	assert.Equal(t, ID("x-1"), got.B)
	assert.Equal(t, ID(""), got.C)
}

func TestTimestamp_Formats(t *testing.T) {
	var got struct {
		A Timestamp `json:"a"`
		B Timestamp `json:"b"`
		C Timestamp `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1722135600,"b":"2024-07-28T03:00:00Z","c":null}`), &got))
	assert.Equal(t, int64(1722135600), got.A.Unix())
	assert.True(t, got.B.Equal(time.Date(2024, 7, 28, 3, 0, 0, 0, time.UTC)))
	assert.True(t, got.C.IsZero())

	out, err := json.Marshal(got.A)
	require.NoError(t, err)
	assert.Equal(t, "1722135600", string(out))
}
