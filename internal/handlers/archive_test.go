package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/plotweaver/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveHandler(t *testing.T) {
	archive := storage.NewMockArchive()
	ctx := context.Background()
	var ids []uuid.UUID
	for range 3 {
		st := rivals(t).Start()
		st.End()
		require.NoError(t, archive.ArchiveStory(ctx, st))
		ids = append(ids, st.ID)
	}
	handler := NewArchiveHandler(archive, testLogger)

	get := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	t.Run("list newest first", func(t *testing.T) {
		rr := get("/v1/archive?limit=2")
		require.Equal(t, http.StatusOK, rr.Code)
		var rows []storage.ArchivedStory
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&rows))
		require.Len(t, rows, 2)
		assert.Equal(t, ids[2], rows[0].ID)
		assert.Equal(t, ids[1], rows[1].ID)
	})

	t.Run("get one", func(t *testing.T) {
		rr := get("/v1/archive/" + ids[0].String())
		require.Equal(t, http.StatusOK, rr.Code)
		var row storage.ArchivedStory
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&row))
		assert.Equal(t, ids[0], row.ID)
		assert.Contains(t, row.Transcript, "The end.")
	})

	t.Run("errors", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get("/v1/archive?limit=0").Code)
		assert.Equal(t, http.StatusBadRequest, get("/v1/archive/nope").Code)
		assert.Equal(t, http.StatusNotFound, get("/v1/archive/"+uuid.New().String()).Code)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/v1/archive", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})
}
