package api

import (
	"html/template"
	"io"
	"net/http"
)

const homePage = `<html>
<body>
    <h2>Pi USB Refresh</h2>
    <form action="/refresh" method="post">
        <button type="submit" style="font-size:20px; padding:10px;">Refresh USB Drive</button>
    </form>
</body>
</html>
`

var resultTemplate = template.Must(template.New("result").Parse(`<h2>{{.}}</h2><a href="/">Back</a>`))

// @desc Render the control panel
// @route GET /
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, homePage)
}

// @desc Run the refresh sequence and report its outcome
// @route POST /refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	result := s.sequencer.Run(r.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := resultTemplate.Execute(w, result.Message()); err != nil {
		s.logger.Error("Failed to render refresh result: %v", err)
	}
}
