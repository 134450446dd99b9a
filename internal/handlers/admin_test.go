// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"bcm/internal/middleware"
	"bcm/internal/session"
)

// adminClient is a browser-like client of the admin pages: it keeps the
// session and CSRF cookies between requests.
type adminClient struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newAdminClient(t *testing.T, env *testEnv) *adminClient {
	t.Helper()
	a := NewAdmin(env.renderer, env.terms, session.NewStore(session.NewMemoryBackend(), false))

	r := chi.NewRouter()
	r.Use(middleware.NewCSRF(false))
	r.Use(middleware.LoadSession(a.sessions))
	r.Get("/admin/terms", a.TermsPage)
	r.Post("/admin/terms/expand-all", a.ExpandAll)
	r.Post("/admin/terms/collapse-all", a.CollapseAll)
	r.Post("/admin/terms/{id}/toggle", a.ToggleTerm)
	r.Post("/admin/terms/{id}/move", a.MoveTerm)
	r.Post("/admin/terms/{id}/delete", a.DeleteTerm)
	r.Get("/admin/terms/{id}/edit", a.EditTermPage)
	r.Post("/admin/terms/{id}", a.SaveTermForm)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &adminClient{t: t, srv: srv, client: &http.Client{Jar: jar}}
}

func (c *adminClient) csrfToken() string {
	u, _ := url.Parse(c.srv.URL)
	for _, cookie := range c.client.Jar.Cookies(u) {
		if cookie.Name == middleware.CSRFCookieName {
			return cookie.Value
		}
	}
	c.t.Fatal("no CSRF cookie")
	return ""
}

func (c *adminClient) get(path string) (int, string) {
	c.t.Helper()
	resp, err := c.client.Get(c.srv.URL + path)
	if err != nil {
		c.t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (c *adminClient) post(path string, form url.Values, htmx bool) (int, string) {
	c.t.Helper()
	form.Set(middleware.CSRFFormField, c.csrfToken())
	req, _ := http.NewRequest(http.MethodPost, c.srv.URL+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestTermsPageStartsCollapsed(t *testing.T) {
	c := newAdminClient(t, newTestEnv(t))

	code, body := c.get("/admin/terms")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	for _, want := range []string{"Fruit", "Vegetables", "Uncategorized", "Expand all"} {
		if !strings.Contains(body, want) {
			t.Errorf("page lacks %q", want)
		}
	}
	if strings.Contains(body, "Apple") {
		t.Error("children of a collapsed term should not render")
	}
}

func TestToggleIsRememberedInSession(t *testing.T) {
	env := newTestEnv(t)
	c := newAdminClient(t, env)
	fruit := env.id(t, "category", "fruit")

	c.get("/admin/terms")
	code, body := c.post("/admin/terms/"+strconv.FormatInt(fruit, 10)+"/toggle", url.Values{"taxonomy": {"category"}}, true)
	if code != http.StatusOK {
		t.Fatalf("toggle status = %d", code)
	}
	if !strings.Contains(body, "Apple") || strings.Contains(body, "<html") {
		t.Errorf("htmx toggle should return the expanded tree fragment, got %s", body)
	}

	_, body = c.get("/admin/terms")
	if !strings.Contains(body, "Apple") {
		t.Error("expansion was not kept across requests")
	}
}

func TestBulkToggles(t *testing.T) {
	c := newAdminClient(t, newTestEnv(t))
	c.get("/admin/terms")

	code, body := c.post("/admin/terms/expand-all", url.Values{"taxonomy": {"category"}}, false)
	if code != http.StatusOK {
		t.Fatalf("expand-all status after redirect = %d", code)
	}
	if !strings.Contains(body, "Apple") || !strings.Contains(body, "Root vegetables") {
		t.Error("expand-all should open the first level")
	}
	if strings.Contains(body, "Carrot") {
		t.Error("expand-all should leave deeper levels alone")
	}

	_, body = c.post("/admin/terms/collapse-all", url.Values{"taxonomy": {"category"}}, false)
	if strings.Contains(body, "Apple") {
		t.Error("collapse-all should close the first level")
	}
}

func TestTermsPageSearch(t *testing.T) {
	c := newAdminClient(t, newTestEnv(t))

	_, body := c.get("/admin/terms?taxonomy=category&q=carr")
	for _, want := range []string{"Carrot", "Root vegetables", "Vegetables"} {
		if !strings.Contains(body, want) {
			t.Errorf("search page lacks %q", want)
		}
	}
	if strings.Contains(body, "Fruit") {
		t.Error("non-matching branch should be hidden")
	}

	_, body = c.get("/admin/terms?q=zzz")
	if !strings.Contains(body, "No terms match") {
		t.Error("empty search should say so")
	}
}

func TestTermsPageFlatTaxonomy(t *testing.T) {
	c := newAdminClient(t, newTestEnv(t))

	code, body := c.get("/admin/terms?taxonomy=post_tag")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(body, "seasonal") || strings.Contains(body, "Expand all") {
		t.Error("flat taxonomy should list tags without bulk toggles")
	}
}

func TestAdminErrors(t *testing.T) {
	c := newAdminClient(t, newTestEnv(t))

	if code, _ := c.get("/admin/terms?taxonomy=nope"); code != http.StatusNotFound {
		t.Errorf("unknown taxonomy status = %d, want 404", code)
	}
	if code, _ := c.post("/admin/terms/abc/toggle", url.Values{}, true); code != http.StatusBadRequest {
		t.Errorf("bad ID status = %d, want 400", code)
	}
	if code, _ := c.post("/admin/terms/9999/toggle", url.Values{}, true); code != http.StatusNotFound {
		t.Errorf("missing term status = %d, want 404", code)
	}
}

// row returns the markup of one term row of a tree page.
func row(t *testing.T, body string, id int64) string {
	t.Helper()
	start := strings.Index(body, `data-term-id="`+strconv.FormatInt(id, 10)+`"`)
	if start < 0 {
		t.Fatalf("no row for term %d", id)
	}
	end := strings.Index(body[start:], "</li>")
	if end < 0 {
		t.Fatalf("row of term %d is not closed", id)
	}
	return body[start : start+end]
}

func TestRowActions(t *testing.T) {
	env := newTestEnv(t)
	c := newAdminClient(t, env)
	fruit := env.id(t, "category", "fruit")
	uncategorized := env.id(t, "category", "uncategorized")

	_, body := c.get("/admin/terms")
	fruitRow := row(t, body, fruit)
	for _, want := range []string{
		`draggable="true"`,
		`href="/admin/terms/` + strconv.FormatInt(fruit, 10) + `/edit?taxonomy=category"`,
		`action="/admin/terms/` + strconv.FormatInt(fruit, 10) + `/delete"`,
	} {
		if !strings.Contains(fruitRow, want) {
			t.Errorf("Fruit row lacks %s", want)
		}
	}

	defaultRow := row(t, body, uncategorized)
	if strings.Contains(defaultRow, "/delete") {
		t.Error("the default category offers a delete action")
	}
	if !strings.Contains(defaultRow, "/edit") {
		t.Error("the default category should still be editable")
	}
	if !strings.Contains(body, `class="bcm-root-drop"`) {
		t.Error("hierarchical page lacks the top-level drop target")
	}

	_, body = c.get("/admin/terms?taxonomy=post_tag")
	if strings.Contains(body, `draggable="true"`) || strings.Contains(body, "bcm-root-drop") {
		t.Error("flat taxonomy rows should not be draggable")
	}
	if !strings.Contains(body, "only available for hierarchical taxonomies") {
		t.Error("flat taxonomy rows should explain why dragging is off")
	}
}

func TestMoveTermFromTreePage(t *testing.T) {
	env := newTestEnv(t)
	c := newAdminClient(t, env)
	fruit := env.id(t, "category", "fruit")
	veg := env.id(t, "category", "vegetables")
	c.get("/admin/terms")

	path := "/admin/terms/" + strconv.FormatInt(veg, 10) + "/move"
	code, body := c.post(path, url.Values{"taxonomy": {"category"}, "parent": {strconv.FormatInt(fruit, 10)}}, true)
	if code != http.StatusOK {
		t.Fatalf("move status = %d", code)
	}
	if !strings.Contains(body, "bcm-notice-success") || !strings.Contains(body, "Term hierarchy updated successfully.") {
		t.Errorf("move should report success, got %s", body)
	}
	if strings.Contains(body, "<html") {
		t.Error("htmx move should return the tree fragment")
	}
	moved, _ := env.store.FindBySlug("category", "vegetables")
	if moved.Parent != fruit {
		t.Errorf("Vegetables parent = %d, want %d", moved.Parent, fruit)
	}

	// Back under the root, then a cycle.
	c.post(path, url.Values{"taxonomy": {"category"}, "parent": {"0"}}, true)
	moved, _ = env.store.FindBySlug("category", "vegetables")
	if moved.Parent != 0 {
		t.Errorf("Vegetables parent = %d, want top level", moved.Parent)
	}

	roots := env.id(t, "category", "root-vegetables")
	_, body = c.post(path, url.Values{"taxonomy": {"category"}, "parent": {strconv.FormatInt(roots, 10)}}, true)
	if !strings.Contains(body, "bcm-notice-error") || !strings.Contains(body, "cannot be moved under itself") {
		t.Errorf("cycle should be reported, got %s", body)
	}

	seasonal := env.id(t, "post_tag", "seasonal")
	organic := env.id(t, "post_tag", "organic")
	_, body = c.post("/admin/terms/"+strconv.FormatInt(seasonal, 10)+"/move",
		url.Values{"taxonomy": {"post_tag"}, "parent": {strconv.FormatInt(organic, 10)}}, true)
	if !strings.Contains(body, msgNotHierarchical) {
		t.Errorf("flat move should be refused, got %s", body)
	}

	if code, _ := c.post(path, url.Values{"taxonomy": {"category"}, "parent": {"x"}}, true); code != http.StatusBadRequest {
		t.Errorf("bad parent status = %d, want 400", code)
	}
	if code, _ := c.post("/admin/terms/9999/move", url.Values{"taxonomy": {"category"}}, true); code != http.StatusNotFound {
		t.Errorf("missing term status = %d, want 404", code)
	}
}

func TestDeleteTermFromTreePage(t *testing.T) {
	env := newTestEnv(t)
	c := newAdminClient(t, env)
	fruit := env.id(t, "category", "fruit")
	uncategorized := env.id(t, "category", "uncategorized")
	c.get("/admin/terms")

	_, body := c.post("/admin/terms/"+strconv.FormatInt(fruit, 10)+"/delete", url.Values{"taxonomy": {"category"}}, true)
	if !strings.Contains(body, msgDeletedUp) {
		t.Errorf("delete should report moved children, got %s", body)
	}
	if gone, _ := env.store.FindBySlug("category", "fruit"); gone != nil {
		t.Error("Fruit still exists")
	}
	apple, _ := env.store.FindBySlug("category", "apple")
	if apple == nil || apple.Parent != 0 {
		t.Errorf("Apple should move to the top level, got %+v", apple)
	}

	_, body = c.post("/admin/terms/"+strconv.FormatInt(uncategorized, 10)+"/delete", url.Values{"taxonomy": {"category"}}, true)
	if !strings.Contains(body, msgDefaultTerm) {
		t.Errorf("default category delete should be refused, got %s", body)
	}
}

func TestEditTermForm(t *testing.T) {
	env := newTestEnv(t)
	c := newAdminClient(t, env)
	fruit := env.id(t, "category", "fruit")
	apple := env.id(t, "category", "apple")
	edit := "/admin/terms/" + strconv.FormatInt(apple, 10)

	code, body := c.get(edit + "/edit?taxonomy=category")
	if code != http.StatusOK {
		t.Fatalf("edit page status = %d", code)
	}
	if !strings.Contains(body, `value="Apple"`) {
		t.Error("edit form lacks the term name")
	}
	if !strings.Contains(body, `value="`+strconv.FormatInt(fruit, 10)+`" data-depth="0" selected`) {
		t.Error("edit form should preselect the current parent")
	}

	_, body = c.post(edit, url.Values{"taxonomy": {"category"}, "name": {"  "}, "parent": {strconv.FormatInt(fruit, 10)}}, false)
	if !strings.Contains(body, "bcm-notice-error") || !strings.Contains(body, "is required.") {
		t.Errorf("empty name should be refused on the form, got %s", body)
	}

	code, body = c.post(edit, url.Values{"taxonomy": {"category"}, "name": {"Green apple"}, "slug": {"apple"}, "parent": {"0"}}, false)
	if code != http.StatusOK {
		t.Fatalf("save status after redirect = %d", code)
	}
	if !strings.Contains(body, "Green apple") {
		t.Error("tree page should list the renamed term at the top level")
	}
	saved, _ := env.store.FindBySlug("category", "apple")
	if saved == nil || saved.Name != "Green apple" || saved.Parent != 0 {
		t.Errorf("saved term = %+v", saved)
	}

	if code, _ := c.get("/admin/terms/9999/edit?taxonomy=category"); code != http.StatusNotFound {
		t.Errorf("missing term edit status = %d, want 404", code)
	}
}
