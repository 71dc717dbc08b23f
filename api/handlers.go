/*
	This file contains the web-facing handlers.
*/
package api

import (
	"net/http"
	"time"

	"github.com/juju/loggo/v2"

	"github.com/netdata/registry"
)

var log = loggo.GetLogger("registry.api")

// CookieName is the cookie that carries the person guid.
const CookieName = "netdata_registry_id"

// verifyCookieGUID is the sentinel the cookie capability probe hands out.
// A browser that echoes it back has proven it accepts cookies, and only
// then is a real identity minted.
const verifyCookieGUID = "give-me-back-this-cookie-now--please"

const (
	statusOK       = "ok"
	statusFailed   = "failed"
	statusDisabled = "disabled"
)

// Server holds the registry instance the handlers operate on. Tests build
// one around a throwaway registry; the daemon builds exactly one.
type Server struct {
	reg *registry.Registry
}

// NewServer creates a Server wrapping reg.
func NewServer(reg *registry.Registry) *Server {
	return &Server{reg: reg}
}

// Route pairs a url path with the handler that serves it.
type Route struct {
	Path       string
	Controller func(w http.ResponseWriter, req *http.Request)
}

// Routes returns the full route table for the registry API.
func (s *Server) Routes() []Route {
	return []Route{
		{Path: "/api/v1/registry/hello", Controller: s.Hello},
		{Path: "/api/v1/registry/access", Controller: s.Access},
		{Path: "/api/v1/registry/delete", Controller: s.Delete},
		{Path: "/api/v1/registry/search", Controller: s.Search},
		{Path: "/api/v1/registry/switch", Controller: s.Switch},
		{Path: "/api/v1/registry/stats", Controller: s.Stats},
	}
}

// baseResponse carries the fields every registry response starts with.
type baseResponse struct {
	Action      string `json:"action"`
	Status      string `json:"status"`
	Hostname    string `json:"hostname"`
	MachineGUID string `json:"machine_guid"`
}

type helloResponse struct {
	baseResponse
	Registry string `json:"registry"`
}

type redirectResponse struct {
	Status   string `json:"status"`
	Registry string `json:"registry"`
}

type accessResponse struct {
	baseResponse
	PersonGUID string          `json:"person_guid"`
	URLs       [][]interface{} `json:"urls"`
}

type searchResponse struct {
	baseResponse
	URLs [][]interface{} `json:"urls"`
}

type switchResponse struct {
	baseResponse
	PersonGUID string `json:"person_guid"`
}

func base(action, status string) baseResponse {
	return baseResponse{
		Action:      action,
		Status:      status,
		Hostname:    registry.Config.Registry.Hostname,
		MachineGUID: registry.Config.Registry.MachineGUID,
	}
}

// renderDisabled reports whether the registry is globally off, and if so
// writes the standard disabled body (HTTP 200 by protocol).
func renderDisabled(w http.ResponseWriter, action string) bool {
	if registry.Config.Registry.Enabled {
		return false
	}
	Render.JSON(w, http.StatusOK, helloResponse{
		baseResponse: base(action, statusDisabled),
		Registry:     registry.Config.Registry.RegistryToAnnounce,
	})
	return true
}

// personGUID pulls the person guid out of the request cookie, or "".
func personGUID(req *http.Request) string {
	c, err := req.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// setCookieValue emits the Set-Cookie headers for value: one without a
// Domain attribute, and a second carrying the configured registry domain.
// Both expire persons_expiration seconds from now.
func setCookieValue(w http.ResponseWriter, value string) {
	expires := time.Now().Add(time.Duration(registry.Config.Registry.PersonsExpiration) * time.Second)

	http.SetCookie(w, &http.Cookie{
		Name:    CookieName,
		Value:   value,
		Expires: expires,
	})

	if domain := registry.Config.Registry.RegistryDomain; domain != "" {
		http.SetCookie(w, &http.Cookie{
			Name:    CookieName,
			Value:   value,
			Domain:  domain,
			Expires: expires,
		})
	}
}

// Hello identifies this registry to a newly arrived browser.
func (s *Server) Hello(w http.ResponseWriter, req *http.Request) {
	if renderDisabled(w, "hello") {
		return
	}
	Render.JSON(w, http.StatusOK, helloResponse{
		baseResponse: base("hello", statusOK),
		Registry:     registry.Config.Registry.RegistryToAnnounce,
	})
}

// Access records a visit and returns the person's full url list. When
// cookie verification is on and the browser presented no person guid, it
// first runs the cookie probe: hand out the sentinel cookie, answer
// "redirect", and mint nothing until the sentinel comes back.
func (s *Server) Access(w http.ResponseWriter, req *http.Request) {
	if renderDisabled(w, "access") {
		return
	}

	person := personGUID(req)
	q := req.URL.Query()

	if registry.Config.Registry.VerifyCookiesRedirects > 0 && person == "" {
		setCookieValue(w, verifyCookieGUID)
		Render.JSON(w, http.StatusOK, redirectResponse{
			Status:   "redirect",
			Registry: registry.Config.Registry.RegistryToAnnounce,
		})
		return
	}

	// The sentinel coming back proves cookies work; it is not an identity.
	if person == verifyCookieGUID {
		person = ""
	}

	res, err := s.reg.RequestAccess(person, q.Get("machine"), q.Get("url"), q.Get("name"), time.Now().Unix())
	if err != nil {
		log.Debugf("access failed for machine %v: %v", q.Get("machine"), err)
		Render.JSON(w, http.StatusPreconditionFailed, base("access", statusFailed))
		return
	}

	setCookieValue(w, res.PersonGUID)

	urls := make([][]interface{}, 0, len(res.URLs))
	for _, row := range res.URLs {
		urls = append(urls, []interface{}{
			row.MachineGUID, row.URL, row.LastT * 1000, row.Usages, row.MachineName,
		})
	}
	Render.JSON(w, http.StatusOK, accessResponse{
		baseResponse: base("access", statusOK),
		PersonGUID:   res.PersonGUID,
		URLs:         urls,
	})
}

// Delete removes one url from the person's list.
func (s *Server) Delete(w http.ResponseWriter, req *http.Request) {
	if renderDisabled(w, "delete") {
		return
	}

	q := req.URL.Query()
	err := s.reg.RequestDelete(personGUID(req), q.Get("machine"), q.Get("url"), q.Get("delete_url"), time.Now().Unix())
	if err != nil {
		log.Debugf("delete failed: %v", err)
		Render.JSON(w, http.StatusPreconditionFailed, base("delete", statusFailed))
		return
	}
	Render.JSON(w, http.StatusOK, base("delete", statusOK))
}

// Search lists the urls of the machine named by the `for` parameter.
func (s *Server) Search(w http.ResponseWriter, req *http.Request) {
	if renderDisabled(w, "search") {
		return
	}

	q := req.URL.Query()
	rows, err := s.reg.RequestSearch(personGUID(req), q.Get("machine"), q.Get("url"), q.Get("for"), time.Now().Unix())
	if err != nil {
		log.Debugf("search failed for machine %v: %v", q.Get("for"), err)
		Render.JSON(w, http.StatusNotFound, base("search", statusFailed))
		return
	}

	urls := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		urls = append(urls, []interface{}{
			row.MachineGUID, row.URL, row.LastT * 1000, row.Usages,
		})
	}
	Render.JSON(w, http.StatusOK, searchResponse{
		baseResponse: base("search", statusOK),
		URLs:         urls,
	})
}

// switchStatus maps each failure of the switch primitive onto the status
// code the web ui distinguishes them by.
func switchStatus(err error) int {
	switch err {
	case registry.ErrPersonNotFound:
		return 430
	case registry.ErrNewPersonNotFound:
		return 431
	case registry.ErrMachineNotFound:
		return 432
	case registry.ErrPersonMachineMissing:
		return 433
	case registry.ErrNewPersonMachineMissing:
		return 434
	}
	return http.StatusPreconditionFailed
}

// Switch moves the browser to the identity named by the `to` parameter.
func (s *Server) Switch(w http.ResponseWriter, req *http.Request) {
	if renderDisabled(w, "switch") {
		return
	}

	q := req.URL.Query()
	guid, err := s.reg.RequestSwitch(personGUID(req), q.Get("machine"), q.Get("url"), q.Get("to"), time.Now().Unix())
	if err != nil {
		log.Debugf("switch failed: %v", err)
		Render.JSON(w, switchStatus(err), base("switch", statusFailed))
		return
	}

	setCookieValue(w, guid)
	Render.JSON(w, http.StatusOK, switchResponse{
		baseResponse: base("switch", statusOK),
		PersonGUID:   guid,
	})
}

// Stats publishes the registry counters for the telemetry collaborator.
func (s *Server) Stats(w http.ResponseWriter, req *http.Request) {
	Render.JSON(w, http.StatusOK, s.reg.Statistics())
}
