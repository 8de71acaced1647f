package api

import (
	"io"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/starford/gloss/internal/storage"
)

const maxUploadBytes = 10 << 20 // 10 MB

var safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// uploadName turns a client file name into a course file name: path
// separators and unsafe characters are dropped and the course extension
// is enforced. Names with nothing usable left get a random UUID.
func uploadName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.TrimSuffix(name, storage.CourseExt)
	name = strings.TrimLeft(safeFilenameRe.ReplaceAllString(name, "_"), "._")
	if strings.Trim(name, "_") == "" {
		name = uuid.New().String()
	}
	return name + storage.CourseExt
}

// UploadCourse handles POST /api/courses/upload (multipart/form-data, field "file").
// An optional "dir" field places the course in a subdirectory of the library.
//
//	@Summary		Upload a course file
//	@Tags			courses
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Course JSON file"
//	@Param			dir		formData	string	false	"Target directory"
//	@Success		201		{object}	UploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/courses/upload [post]
func (h *Handler) UploadCourse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("file is empty"))
		return
	}

	p := uploadName(header.Filename)
	if dir := strings.Trim(r.FormValue("dir"), "/"); dir != "" {
		p = path.Join(path.Clean(dir), p)
	}

	course, err := h.svc.CreateCourse(r.Context(), p, data)
	if err != nil {
		writeError(w, "upload course", err, slog.String("path", p))
		return
	}
	writeJSON(w, http.StatusCreated, UploadResponse{
		Path:   course.Path,
		Size:   int64(len(data)),
		Course: *course,
	})
}
