package http

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// fail logs server-side failures and writes the mapped error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if StatusFor(err) == http.StatusInternalServerError {
		logger := applog.NewStructuredLogger(applog.FromContext(r.Context()))
		logger.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op, nil)
	}
	ErrorFrom(err).Write(w)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	kind, err := KindParam(r)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	filter, err := ParseFilter(kind, r.URL.Query())
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}

	view, err := s.dashboard.List(r.Context(), kind, filter)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	NewResponse().JSON(view).Write(w)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	kind, err := KindParam(r)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	rec, err := DecodeRecord(r)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}

	saved, err := s.records.Create(r.Context(), kind, rec)
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(saved).Write(w)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	kind, err := KindParam(r)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	rec, err := DecodeRecord(r)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}

	saved, err := s.records.Update(r.Context(), kind, chi.URLParam(r, "id"), rec)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	NewResponse().JSON(saved).Write(w)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, err := KindParam(r)
	if err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	if err := s.records.Delete(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	kind, err := KindParam(r)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	opts, err := s.dashboard.Options(r.Context(), kind)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	NewResponse().JSON(opts).Write(w)
}

// handleUpload imports the workbook sent in the multipart field "file".
// Rows that fail validation are reported next to the imported items.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	kind, err := KindParam(r)
	if err != nil {
		s.fail(w, r, applog.OpImport, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			err = errors.Join(errBadRequest, err)
		}
		s.fail(w, r, applog.OpImport, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		BadRequestError(`missing multipart field "file"`).Write(w)
		return
	}
	defer file.Close()

	res, err := s.importer.Import(r.Context(), kind, file)
	if err != nil {
		s.fail(w, r, applog.OpImport, err)
		return
	}

	status := http.StatusCreated
	if res.Count == 0 {
		status = http.StatusUnprocessableEntity
	}
	NewResponse().Status(status).JSON(res).Write(w)
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	kind, err := KindParam(r)
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	var buf bytes.Buffer
	if err := services.Template(kind, &buf); err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewResponse().
		Body(xlsxContentType, buf.Bytes()).
		Attachment(services.TemplateFilename(kind)).
		Write(w)
}
