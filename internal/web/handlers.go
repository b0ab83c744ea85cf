package web

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.roster.Load()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	type studentJSON struct {
		Enrollment string `json:"enrollment"`
		Name       string `json:"name"`
	}
	out := make([]studentJSON, len(students))
	for i, st := range students {
		out[i] = studentJSON{Enrollment: st.Enrollment, Name: st.Name}
	}
	writeJSON(w, http.StatusOK, map[string]any{"students": out, "count": len(out)})
}

type attendanceFileJSON struct {
	File    string `json:"file"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

func (s *Server) handleAttendanceSubjects(w http.ResponseWriter, r *http.Request) {
	paths, err := store.ListAttendanceFiles(s.config.Storage.AttendanceDir(), "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	subjects := make(map[string]int)
	for _, p := range paths {
		subject, _, _, err := store.DecodeAttendanceName(p)
		if err != nil {
			continue
		}
		subjects[subject]++
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
}

func (s *Server) handleAttendanceList(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	dateFilter := r.URL.Query().Get("date")

	paths, err := store.ListAttendanceFiles(s.config.Storage.AttendanceDir(), subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var files []attendanceFileJSON
	for _, p := range paths {
		subj, date, timeOfDay, err := store.DecodeAttendanceName(p)
		if err != nil {
			continue
		}
		if dateFilter != "" && date != dateFilter {
			continue
		}
		files = append(files, attendanceFileJSON{
			File:    filepath.Base(p),
			Subject: subj,
			Date:    date,
			Time:    timeOfDay,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files, "count": len(files)})
}

func (s *Server) handleAttendanceFile(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	file := chi.URLParam(r, "file")

	// The file name is user input; keep the lookup inside the subject dir.
	if strings.Contains(file, "/") || strings.Contains(file, "..") {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}

	path := filepath.Join(s.config.Storage.AttendanceDir(), store.SanitizeName(subject), file)
	records, err := store.ReadAttendance(path)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	type recordJSON struct {
		Enrollment string `json:"enrollment"`
		Name       string `json:"name"`
	}
	out := make([]recordJSON, len(records))
	for i, rec := range records {
		out[i] = recordJSON{Enrollment: rec.Enrollment, Name: rec.Name}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": out, "count": len(out)})
}

func (s *Server) handleSyncPending(w http.ResponseWriter, r *http.Request) {
	log := store.NewPendingLog(s.config.Storage.PendingLogPath())
	pending, err := log.Read()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": pending, "count": len(pending)})
}

func (s *Server) handleSyncRun(w http.ResponseWriter, r *http.Request) {
	var messages []string
	result, err := s.sync.SyncPending(r.Context(), func(msg string) {
		messages = append(messages, msg)
	})
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":    err.Error(),
			"messages": messages,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"synced":    result.Synced,
		"remaining": result.Remaining,
		"messages":  messages,
	})
}
