package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/okian/rgtrack/internal/adapters/repository"
	"github.com/okian/rgtrack/internal/domain/classes"
	"github.com/okian/rgtrack/internal/domain/convert"
	"github.com/okian/rgtrack/internal/domain/scoreimport"
	"github.com/okian/rgtrack/internal/validation"
)

const csvImportType = "file/eamusement-iidx-csv"

// importParams are the query parameters every import route accepts.
type importParams struct {
	ImportType string `json:"importType" validate:"required,importtype"`
	Game       string `json:"game" validate:"omitempty,game"`
	Playtype   string `json:"playtype" validate:"omitempty,max=20"`
	Service    string `json:"service" validate:"omitempty,max=64"`
	Version    string `json:"version" validate:"omitempty,max=64"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	userID, err := requester(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.runImport(w, r, userID, chi.URLParam(r, "kind")+"/"+chi.URLParam(r, "name"), body)
}

// handleImportCSV accepts the CSV either raw or as the "scoreData" multipart file.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	userID, err := requester(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body []byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
		if err := r.ParseMultipartForm(s.maxBodyBytes); err != nil {
			writeError(w, r, WrapKind("parse form", ErrBadRequest, err))
			return
		}
		f, _, err := r.FormFile("scoreData")
		if err != nil {
			writeError(w, r, WrapKind("parse form", ErrBadRequest, err))
			return
		}
		defer f.Close()
		if body, err = io.ReadAll(f); err != nil {
			writeError(w, r, WrapKind("read form file", ErrInternal, err))
			return
		}
	} else if body, err = s.readBody(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	s.runImport(w, r, userID, csvImportType, body)
}

func (s *Server) runImport(w http.ResponseWriter, r *http.Request, userID int, importType string, body []byte) {
	q := r.URL.Query()
	params := importParams{
		ImportType: importType,
		Game:       q.Get("game"),
		Playtype:   q.Get("playtype"),
		Service:    q.Get("service"),
		Version:    q.Get("version"),
	}
	if err := validation.Struct(params); err != nil {
		writeError(w, r, Wrap("import", err))
		return
	}

	sc := convert.SourceContext{
		UserID:   userID,
		Game:     params.Game,
		Playtype: params.Playtype,
		Service:  params.Service,
		Version:  params.Version,
	}
	payloads, sc, err := s.deps.Parser.Parse(importType, body, sc)
	if err != nil {
		writeError(w, r, Wrap("parse import", err))
		return
	}

	doc, err := s.deps.Importer.Import(r.Context(), scoreimport.Input{
		UserID:     userID,
		ImportType: importType,
		Payloads:   payloads,
		Source:     sc,
		UserIntent: true,
		Providers:  s.classProviders(r, importType),
	})
	if err != nil {
		writeError(w, r, Wrap("import", err))
		return
	}
	writeOK(w, http.StatusOK, fmt.Sprintf("Imported %d scores with %d errors.", len(doc.ScoreIDs), len(doc.Errors)), doc)
}

// handleUSCScore takes one score from a USC client. The body is a single
// {chartHash, score} object.
func (s *Server) handleUSCScore(w http.ResponseWriter, r *http.Request) {
	s.singleScore(w, r, "usc", "ir/usc", convert.SourceContext{
		Game:     "usc",
		Playtype: chi.URLParam(r, "playtype"),
		Service:  "USC-IR",
	})
}

// handleBarbatosScore takes one SDVX score from a Barbatos client.
func (s *Server) handleBarbatosScore(w http.ResponseWriter, r *http.Request) {
	s.singleScore(w, r, "barbatos", "ir/barbatos", convert.SourceContext{
		Game:     "sdvx",
		Playtype: "Single",
		Service:  "Barbatos",
	})
}

// singleScore imports a body holding exactly one score. A chart miss is 404 and any
// other entry failure 400.
func (s *Server) singleScore(w http.ResponseWriter, r *http.Request, op, importType string, sc convert.SourceContext) {
	userID, err := requester(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := s.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !json.Valid(body) {
		writeError(w, r, NewKind(op, ErrBadRequest, "body is not valid JSON"))
		return
	}

	sc.UserID = userID
	doc, err := s.deps.Importer.Import(r.Context(), scoreimport.Input{
		UserID:     userID,
		ImportType: importType,
		Payloads:   []json.RawMessage{body},
		Source:     sc,
	})
	if err != nil {
		writeError(w, r, Wrap(op, err))
		return
	}

	if len(doc.ScoreIDs) == 0 {
		if len(doc.Errors) > 0 {
			kind := ErrBadRequest
			if doc.Errors[0].Type == string(convert.KindSongOrChartNotFound) {
				kind = ErrNotFound
			}
			writeError(w, r, NewKind(op, kind, "%s", doc.Errors[0].Message))
			return
		}
		writeOK(w, http.StatusOK, "Score was already imported.", doc)
		return
	}
	writeOK(w, http.StatusOK, "Successfully imported score.", map[string]any{
		"scoreID": doc.ScoreIDs[0],
		"import":  doc,
	})
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	s.listImports(w, r, false)
}

func (s *Server) handleListIntentImports(w http.ResponseWriter, r *http.Request) {
	s.listImports(w, r, true)
}

// listImports pages backwards with ?timeFinished=<unix ms>.
func (s *Server) listImports(w http.ResponseWriter, r *http.Request, intentOnly bool) {
	limit, err := limitQuery(r, 25, s.maxRecentLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f := repository.ImportFilter{UserIntentOnly: intentOnly, Limit: limit}
	if raw := r.URL.Query().Get("timeFinished"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < 0 {
			writeError(w, r, NewKind("query", ErrBadRequest, "timeFinished must be a unix timestamp in milliseconds"))
			return
		}
		f.FinishedBefore = time.UnixMilli(ms)
	}

	docs, err := s.deps.Store.ListImports(r.Context(), userFrom(r.Context()), f)
	if err != nil {
		writeError(w, r, Wrap("list imports", err))
		return
	}
	writeOK(w, http.StatusOK, fmt.Sprintf("Found %d imports.", len(docs)), docs)
}

func (s *Server) classProviders(r *http.Request, importType string) []classes.Provider {
	if s.deps.ClassProviders == nil {
		return nil
	}
	return s.deps.ClassProviders(r, importType)
}
