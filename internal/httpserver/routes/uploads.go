package routes

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/httpserver/handlers"
)

func init() { Register(registerUploads) }

func registerUploads(r chi.Router, d deps.Deps) {
	api(r, d).Get("/api/uploads", handlers.ListUploads(d))
	action(r, d).Post("/api/uploads", handlers.Upload(d))

	// Local backend only; object storage serves files from its own origin.
	if d.UploadDir != "" {
		files := http.StripPrefix("/uploads/", http.FileServer(noListing{http.Dir(d.UploadDir)}))
		r.Method(http.MethodGet, "/uploads/*", files)
	}
}

// noListing hides directory indexes.
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
