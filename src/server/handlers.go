package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Protocol-Lattice/codeassist"
	"github.com/Protocol-Lattice/codeassist/src/github"
	"github.com/Protocol-Lattice/codeassist/src/observability"
	"github.com/Protocol-Lattice/codeassist/src/uploads"
)

const (
	maxJSONBody     = 1 << 20
	multipartMemory = 8 << 20
)

type githubRequest struct {
	RepoURL  string `json:"repo_url"`
	FilePath string `json:"file_path"`
}

type uploadResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	URL      string `json:"url"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleUploadedFile(w http.ResponseWriter, r *http.Request) {
	path, err := s.uploads.Resolve(r.PathValue("filename"))
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context(), s.logger)
	r.Body = http.MaxBytesReader(w, r.Body, s.uploads.MaxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "no file part")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file part")
		return
	}
	defer file.Close()

	up, err := s.uploads.Save(header.Filename, file)
	switch {
	case err == nil:
	case errors.Is(err, uploads.ErrEmptyFilename):
		writeError(w, http.StatusBadRequest, "no file selected")
		return
	case errors.Is(err, uploads.ErrDisallowedType):
		writeError(w, http.StatusBadRequest, "file type not allowed")
		return
	case errors.Is(err, uploads.ErrTooLarge) || isTooLarge(err):
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
		return
	default:
		logger.Error("upload failed", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("error uploading file: %v", err))
		return
	}

	logger.Info("file uploaded", "filename", up.Filename, "type", up.Type)
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:  true,
		Filename: up.Filename,
		Path:     up.Path,
		Type:     up.Type,
		Content:  up.Content,
		URL:      hostURL(r) + "uploads/" + up.Filename,
	})
}

func (s *Server) handleGitHub(w http.ResponseWriter, r *http.Request) {
	var body githubRequest
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(body.RepoURL) == "" {
		writeError(w, http.StatusBadRequest, "GitHub repository URL must not be empty")
		return
	}

	content, err := s.github.Fetch(r.Context(), body.RepoURL, body.FilePath)
	if err != nil {
		observability.LoggerFromContext(r.Context(), s.logger).Warn("github fetch failed",
			"repo_url", body.RepoURL, "file_path", body.FilePath, "error", err)
		writeError(w, http.StatusBadRequest, githubErrorMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "content": content})
}

func githubErrorMessage(err error) string {
	var apiErr *github.APIError
	switch {
	case errors.As(err, &apiErr), errors.Is(err, github.ErrInvalidRepoURL), errors.Is(err, github.ErrUnexpectedContent):
		return err.Error()
	default:
		return "error fetching GitHub content: " + err.Error()
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req codeassist.AskRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, codeassist.ErrEmptyQuestion.Error())
		return
	}
	sid, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	res, err := s.assistant.Ask(r.Context(), sid, req)
	if err != nil {
		if errors.Is(err, codeassist.ErrEmptyQuestion) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		observability.LoggerFromContext(r.Context(), s.logger).Error("ask failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("error processing request: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sid, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	entries, err := s.assistant.History(r.Context(), sid)
	if err != nil {
		observability.LoggerFromContext(r.Context(), s.logger).Error("history lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sid, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.assistant.ClearHistory(r.Context(), sid); err != nil {
		observability.LoggerFromContext(r.Context(), s.logger).Error("history clear failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "history cleared"})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": s.assistant.Catalog().Models()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"timestamp":          s.now().Format(time.RFC3339),
		"api_key_configured": s.apiKeyConfigured,
	})
}

// sessionID resolves the caller's session, writing a 500 on failure.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid, err := s.sessions.ID(w, r)
	if err != nil {
		observability.LoggerFromContext(r.Context(), s.logger).Error("session cookie failed", "error", err)
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return "", false
	}
	return sid, true
}

func hostURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/"
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func readJSON(r *http.Request, dst any) error {
	if r == nil || r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()

	b, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return fmt.Errorf("failed reading request body: %v", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		b = []byte("{}")
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("invalid json: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	b, err := json.Marshal(v)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"failed to marshal json"}`))
		return
	}
	_, _ = w.Write(append(b, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
