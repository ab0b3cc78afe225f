package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Rokatacaem/SistemaBillar/internal/table"
)

type stubService struct {
	Service
	started *OpenSessionRequest
}

func (s *stubService) Start(_ context.Context, req OpenSessionRequest) (*SessionDetail, error) {
	s.started = &req
	return &SessionDetail{
		Session: Session{ID: 1, TableID: req.TableID, GameType: table.GamePool, Status: StatusActive},
		Players: []SessionPlayer{},
		Items:   []SessionItem{},
	}, nil
}

func TestStartHandler_PoolAcceptsEmptyPlayers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	stub := &stubService{}
	h := &Handler{svc: stub}
	r := gin.New()
	r.POST("/sessions", h.Start)

	cases := []struct {
		name string
		body string
	}{
		{"empty list", `{"table_id":1,"players":[]}`},
		{"omitted", `{"table_id":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			require.NotNil(t, stub.started)
			require.Empty(t, stub.started.Players)
		})
	}
}
