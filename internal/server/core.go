package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"

	"github.com/ilnaes/sharepad/internal/rpc"
)

const (
	NotepadPath   = "/notepad"
	DocumentsPath = "/documents"
)

// Router serves the notepad websocket and a JSON listing of documents.
func Router(s *Server, settings rpc.Settings) *mux.Router {
	r := mux.NewRouter()

	r.Handle(NotepadPath, NewEndpoint(s, settings))
	r.HandleFunc(DocumentsPath, func(w http.ResponseWriter, r *http.Request) {
		names, err := s.GetDocumentList(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(names)
	}).Methods("GET")

	return r
}

// Run serves s on addr until ctx is done, then tells every notepad the
// server is going away and stops the listener.
func Run(ctx context.Context, s *Server, addr string, settings rpc.Settings) error {
	srv := &http.Server{
		Handler: Router(s, settings),
		Addr:    addr,
		// websocket connections are long lived so no read/write timeouts
		ReadHeaderTimeout: 15 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()
	glog.Infof("[s]serving %s on %s\n", s.Addr(), addr)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
