package sandbox

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// selectPattern accepts SELECT <cols> FROM <object> [WHERE <clause>].
var selectPattern = regexp.MustCompile(`(?is)^\s*SELECT\s+(.+?)\s+FROM\s+(\w+)(?:\s+WHERE\s+(.+?))?\s*$`)

type queryResult struct {
	TotalSize      int              `json:"totalSize"`
	Done           bool             `json:"done"`
	NextRecordsURL string           `json:"nextRecordsUrl,omitempty"`
	Records        []map[string]any `json:"records"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	m := selectPattern.FindStringSubmatch(q)
	if m == nil {
		writeErrors(w, http.StatusBadRequest, apiError{Message: "unexpected token in query: " + q, ErrorCode: "MALFORMED_QUERY"})
		return
	}
	if !strings.EqualFold(m[2], userTable) {
		writeErrors(w, http.StatusBadRequest, apiError{
			Message:   "sObject type '" + m[2] + "' is not supported.",
			ErrorCode: "INVALID_TYPE",
		})
		return
	}

	records, err := s.store.Select(r.Context(), strings.Split(m[1], ","), m[3])
	if err != nil {
		storeError(w, err)
		return
	}
	for _, rec := range records {
		s.withAttributes(r, rec)
	}
	s.logger.Debug("sandbox query", "soql", q, "records", len(records))

	writeJSON(w, http.StatusOK, s.page(r, records, len(records)))
}

func (s *Server) handleQueryMore(w http.ResponseWriter, r *http.Request) {
	locator := r.PathValue("locator")

	s.mu.Lock()
	c, ok := s.cursors[locator]
	delete(s.cursors, locator)
	s.mu.Unlock()

	if !ok {
		writeErrors(w, http.StatusBadRequest, apiError{Message: "invalid query locator", ErrorCode: "INVALID_QUERY_LOCATOR"})
		return
	}
	writeJSON(w, http.StatusOK, s.page(r, c.records, c.total))
}

// cursor is the unread remainder of a query.
type cursor struct {
	records []map[string]any
	total   int
}

// page returns the first batch of records, parking the remainder under a
// new locator. total is the size of the whole query result.
func (s *Server) page(r *http.Request, records []map[string]any, total int) queryResult {
	if records == nil {
		records = []map[string]any{}
	}
	if len(records) <= s.batchSize {
		return queryResult{TotalSize: total, Done: true, Records: records}
	}

	locator := "01g" + strings.ReplaceAll(uuid.NewString(), "-", "")
	s.mu.Lock()
	s.cursors[locator] = cursor{records: records[s.batchSize:], total: total}
	s.mu.Unlock()

	return queryResult{
		TotalSize:      total,
		Done:           false,
		NextRecordsURL: "/services/data/" + r.PathValue("version") + "/query/" + locator,
		Records:        records[:s.batchSize],
	}
}
