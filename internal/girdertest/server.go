// Package girdertest runs an in-memory Girder REST API for tests.
package girdertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	APIKey = "test-api-key"
	Token  = "test-token"
)

// Doc is a stored record, kept as a generic map so tests can assert that
// fields the client does not model survive a round trip.
type Doc = map[string]any

type File struct {
	Record  Doc
	Content []byte
}

// Server is a fake Girder instance mounted under /api/v1. Populate the
// exported slices before issuing requests; the server is safe for the
// concurrent access httptest performs.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	Collections []Doc
	Users       []Doc
	Folders     []Doc
	Items       []Doc
	Jobs        []Doc
	Files       map[string]File
	// LogFrames are sent to every log stream subscriber, followed by a
	// close frame with LogCloseCode.
	LogFrames    []string
	LogCloseCode int
	requests     []string
	requestIDs   []string
}

func NewServer(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &Server{Files: map[string]File{}, LogCloseCode: websocket.CloseNormalClosure}
	s.Server = httptest.NewServer(s.engine())
	t.Cleanup(s.Close)
	return s
}

// APIURL is the REST base URL, the equivalent of GIRDER_API_URL.
func (s *Server) APIURL() string { return s.URL + "/api/v1" }

// Requests returns "METHOD /path?query" for every authenticated request
// served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// RequestIDs returns the X-Request-Id of every request served, in order.
// Requests that arrived without one are recorded as "".
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

func (s *Server) engine() *gin.Engine {
	r := gin.New()
	r.Use(s.requestID)
	r.GET("/logs/docker", s.logs)
	v1 := r.Group("/api/v1")
	v1.POST("/api_key/token", s.token)

	authed := v1.Group("", s.requireToken)
	{
		authed.GET("/collection", s.listCollections)
		authed.GET("/user", s.listUsers)
		authed.GET("/user/:id", s.getByID(func() []Doc { return s.Users }, "user"))
		authed.GET("/folder", s.listFolders)
		authed.GET("/item", s.listItems)
		authed.GET("/job/:id", s.getJob)
		authed.GET("/file/:id", s.getFile)
		authed.GET("/file/:id/download", s.downloadFile)
	}
	return r
}

func (s *Server) requestID(c *gin.Context) {
	reqID := c.GetHeader("X-Request-Id")
	s.mu.Lock()
	s.requestIDs = append(s.requestIDs, reqID)
	s.mu.Unlock()
	if reqID == "" {
		reqID = "generated"
	}
	c.Writer.Header().Set("X-Request-Id", reqID)
	c.Next()
}

func (s *Server) token(c *gin.Context) {
	if c.Query("key") != APIKey {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid API key.", "type": "rest"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authToken": gin.H{"token": Token, "expires": "2099-01-01T00:00:00+00:00"}})
}

func (s *Server) requireToken(c *gin.Context) {
	if c.GetHeader("Girder-Token") != Token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "You must be logged in.", "type": "access"})
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, c.Request.Method+" "+strings.TrimPrefix(c.Request.URL.Path, "/api/v1")+"?"+c.Request.URL.RawQuery)
	s.mu.Unlock()
	c.Next()
}

func (s *Server) listCollections(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := c.Query("name")
	var out []Doc
	for _, d := range s.Collections {
		if name == "" || d["name"] == name {
			out = append(out, d)
		}
	}
	c.JSON(http.StatusOK, paginate(c, out))
}

func (s *Server) listUsers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := strings.ToLower(c.Query("text"))
	var out []Doc
	for _, d := range s.Users {
		if text == "" || userMatches(d, text) {
			out = append(out, d)
		}
	}
	c.JSON(http.StatusOK, paginate(c, out))
}

func userMatches(d Doc, text string) bool {
	for _, k := range []string{"login", "firstName", "lastName", "email"} {
		if v, ok := d[k].(string); ok && strings.Contains(strings.ToLower(v), text) {
			return true
		}
	}
	return false
}

func (s *Server) listFolders(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parentID := c.Query("parentId")
	name, hasName := c.GetQuery("name")
	jobID, hasJob := c.GetQuery("jobId")
	var out []Doc
	for _, d := range s.Folders {
		if parentID != "" && d["parentId"] != parentID {
			continue
		}
		if hasName && d["name"] != name {
			continue
		}
		if hasJob {
			meta, _ := d["meta"].(Doc)
			if meta == nil || meta["job_id"] != jobID {
				continue
			}
		}
		out = append(out, d)
	}
	sortDocs(out, c.Query("sort"), c.Query("sortdir"))
	c.JSON(http.StatusOK, paginate(c, out))
}

func (s *Server) listItems(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	folderID := c.Query("folderId")
	if folderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid search mode.", "type": "rest"})
		return
	}
	var out []Doc
	for _, d := range s.Items {
		if d["folderId"] == folderID {
			out = append(out, d)
		}
	}
	c.JSON(http.StatusOK, paginate(c, out))
}

func (s *Server) getJob(c *gin.Context) {
	if c.Param("id") == "all" {
		s.listJobs(c)
		return
	}
	s.getByID(func() []Doc { return s.Jobs }, "job")(c)
}

func (s *Server) listJobs(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var statuses []int
	var types []string
	if v := c.Query("statuses"); v != "" {
		if err := json.Unmarshal([]byte(v), &statuses); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "statuses must be a JSON list", "type": "validation"})
			return
		}
	}
	if v := c.Query("types"); v != "" {
		if err := json.Unmarshal([]byte(v), &types); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "types must be a JSON list", "type": "validation"})
			return
		}
	}
	var out []Doc
	for _, d := range s.Jobs {
		if len(statuses) > 0 && !containsInt(statuses, toInt(d["status"])) {
			continue
		}
		if len(types) > 0 && !containsString(types, fmt.Sprint(d["type"])) {
			continue
		}
		out = append(out, d)
	}
	c.JSON(http.StatusOK, paginate(c, out))
}

func (s *Server) getFile(c *gin.Context) {
	s.mu.Lock()
	f, ok := s.Files[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file id (" + c.Param("id") + ").", "type": "rest"})
		return
	}
	c.JSON(http.StatusOK, f.Record)
}

func (s *Server) downloadFile(c *gin.Context) {
	s.mu.Lock()
	f, ok := s.Files[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid file id (" + c.Param("id") + ").", "type": "rest"})
		return
	}
	name, _ := f.Record["name"].(string)
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/octet-stream", f.Content)
}

func (s *Server) getByID(docs func() []Doc, kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := c.Param("id")
		for _, d := range docs() {
			if d["_id"] == id {
				c.JSON(http.StatusOK, d)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "Invalid " + kind + " id (" + id + ").", "type": "rest"})
	}
}

func paginate(c *gin.Context, docs []Doc) []Doc {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if offset >= len(docs) {
		return []Doc{}
	}
	end := len(docs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end]
}

func sortDocs(docs []Doc, field, dir string) {
	if field == "" {
		return
	}
	desc := dir == "-1"
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := fmt.Sprint(docs[i][field]), fmt.Sprint(docs[j][field])
		if desc {
			return a > b
		}
		return a < b
	})
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return -1
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

var upgrader = websocket.Upgrader{}

func (s *Server) logs(c *gin.Context) {
	if c.Query("token") != Token {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "You must be logged in.", "type": "access"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.mu.Lock()
	frames := append([]string(nil), s.LogFrames...)
	code := s.LogCloseCode
	s.mu.Unlock()
	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""))
	// Wait for the echo so the client sees the close frame.
	_, _, _ = conn.ReadMessage()
}
