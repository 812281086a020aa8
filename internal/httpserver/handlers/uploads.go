package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/encore/internal/blob"
	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/library"
	"github.com/MrSnakeDoc/encore/internal/logger"
)

const multipartMemory = 32 << 20

type uploadResponse struct {
	URL string `json:"url"`
}

type uploadFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type listUploadsResponse struct {
	Files []uploadFile `json:"files"`
}

type uploadFunc func(ctx context.Context, in library.UploadInput) (string, error)

// Upload stores the multipart "file" field, optionally at "path", and returns
// its absolute URL. Concurrent uploads are independent.
func Upload(d deps.Deps) http.HandlerFunc {
	return handleUpload(d, d.Media.Put)
}

// MediaUpload is Upload run as the single-flight library action.
func MediaUpload(d deps.Deps) http.HandlerFunc {
	return handleUpload(d, d.Media.Upload)
}

func handleUpload(d deps.Deps, put uploadFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > d.MaxUploadSize {
			writeMessage(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, d.MaxUploadSize)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeMessage(w, http.StatusRequestEntityTooLarge, "File too large")
				return
			}
			writeMessage(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				d.Logger.Debug("failed to remove multipart temp files", logger.Error(err))
			}
		}()

		file, header, err := r.FormFile("file")
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "No file uploaded")
			return
		}
		defer func() { _ = file.Close() }()

		url, err := put(r.Context(), library.UploadInput{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
			Size:        header.Size,
			Path:        r.FormValue("path"),
		})
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, uploadResponse{URL: url})
	}
}

// ListUploads lists one upload folder (default: the media folder).
func ListUploads(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		folder := blob.SanitizePath(r.URL.Query().Get("folder"))
		if folder == "" {
			folder = d.MediaFolder
		}

		files, err := d.Blobs.List(r.Context(), folder)
		if err != nil {
			writeError(d, w, r, err)
			return
		}

		out := listUploadsResponse{Files: make([]uploadFile, 0, len(files))}
		for _, f := range files {
			out.Files = append(out.Files, uploadFile{Name: f.Name, URL: f.URL})
		}
		writeJSON(w, http.StatusOK, out)
	}
}
