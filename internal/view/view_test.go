package view

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/socialdash/internal/backend"
	"github.com/ashureev/socialdash/internal/fixtures"
	"github.com/ashureev/socialdash/internal/pagestate"
	"github.com/google/go-cmp/cmp"
)

func mustFixtures(t *testing.T) *fixtures.Set {
	t.Helper()
	fx, err := fixtures.Default()
	if err != nil {
		t.Fatalf("fixtures.Default() error = %v", err)
	}
	return fx
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{FormatCount(12345), "12,345"},
		{FormatCompact(45200), "45.2k"},
		{FormatCompact(2000000), "2M"},
		{FormatCompact(950), "950"},
		{FormatPercent(4.8), "4.8%"},
		{FormatStat(12345, "count"), "12,345"},
		{MaskToken(""), ""},
		{MaskToken("short"), "••••••••"},
		{MaskToken("eyJhbGciOiJIUzI1NiJ9.payload.sig"), "eyJhbG….sig"},
		{Truncate("hello world", 5), "hello…"},
		{Truncate("hi", 5), "hi"},
		{LongDate(time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)), "April 15, 2024"},
	}
	for i, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("case %d: got %q, want %q", i, tt.got, tt.want)
		}
	}
}

func TestAgo(t *testing.T) {
	now := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)
	if got := Ago(now.Add(-2*time.Hour), now); got != "2 hours ago" {
		t.Errorf("Ago() = %q, want 2 hours ago", got)
	}
	if got := Ago(time.Time{}, now); got != "" {
		t.Errorf("Ago(zero) = %q, want empty", got)
	}
}

func TestNavMarksActive(t *testing.T) {
	items := Nav("/analytics")
	var active []string
	for _, it := range items {
		if it.Active {
			active = append(active, it.Href)
		}
	}
	if diff := cmp.Diff([]string{"/analytics"}, active); diff != "" {
		t.Errorf("active items mismatch (-want +got):\n%s", diff)
	}
	if Nav("/dashboard")[1].Active {
		t.Error("Nav must not leak active state between calls")
	}
}

func TestLineChartGeometry(t *testing.T) {
	c := NewLineChart([]string{"a", "b", "c"}, []float64{0, 50, 100})
	if c.Empty || len(c.Points) != 3 {
		t.Fatalf("chart = %+v", c)
	}
	left, top, w, h := plotBounds()
	if c.Points[0].X != left || c.Points[2].X != left+w {
		t.Errorf("x range = %v..%v", c.Points[0].X, c.Points[2].X)
	}
	if c.Points[0].Y != top+h || c.Points[2].Y != top {
		t.Errorf("y range = %v..%v", c.Points[0].Y, c.Points[2].Y)
	}
	if strings.Count(c.Polyline, ",") != 3 {
		t.Errorf("polyline = %q", c.Polyline)
	}
	if !NewLineChart(nil, nil).Empty {
		t.Error("empty chart expected")
	}
}

func TestBarChartGeometry(t *testing.T) {
	c := NewBarChart([]string{"Mon", "Tue"},
		Series{Name: "likes", Values: []float64{100, 200}},
		Series{Name: "comments", Values: []float64{50}},
	)
	if len(c.Groups) != 2 || len(c.Groups[0].Bars) != 2 {
		t.Fatalf("chart = %+v", c)
	}
	tallest := c.Groups[1].Bars[0]
	if tallest.Y+tallest.H != c.Baseline {
		t.Errorf("bar does not sit on baseline: %+v baseline %v", tallest, c.Baseline)
	}
	if c.Groups[1].Bars[1].H != 0 {
		t.Errorf("missing value should render as zero height, got %+v", c.Groups[1].Bars[1])
	}
}

func TestRenderDashboardFallsBackToFixtures(t *testing.T) {
	fx := mustFixtures(t)
	v := RenderDashboard(DashboardInput{
		Insights: pagestate.Fail(pagestate.State[backend.Insights]{}, ""),
		Posts:    pagestate.State[[]backend.Post]{},
		Fixtures: fx,
		Now:      time.Now(),
	})

	want := []StatCard{
		{Title: "Total Followers", Value: "12,345", Change: "+12%"},
		{Title: "Total Reach", Value: "45.2k", Change: "+8%"},
		{Title: "Engagement Rate", Value: "4.8%", Change: "+2.1%"},
	}
	if diff := cmp.Diff(want, v.Stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	if !v.InsightsFailed || !v.PostsLoading {
		t.Errorf("flags = failed %v loading %v", v.InsightsFailed, v.PostsLoading)
	}
	if len(v.Followers.Points) != 7 || v.Followers.Points[6].Value != "6,000" {
		t.Errorf("followers = %+v", v.Followers.Points)
	}
	if len(v.Activity) != 3 {
		t.Errorf("activity = %d, want 3", len(v.Activity))
	}
}

func TestRenderDashboardUsesLiveData(t *testing.T) {
	fx := mustFixtures(t)
	var insights backend.Insights
	raw := `{"account_metrics":{"follower_count":[{"value":10},{"value":20},{"value":30}],"reach":{"value":2000},"accounts_engaged":{"value":100}}}`
	if err := json.Unmarshal([]byte(raw), &insights); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	now := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)
	posts := []backend.Post{
		{Caption: "Summer drop", MediaURL: "/media/a.jpg", Permalink: "https://instagram.com/p/a", Timestamp: backend.Timestamp{Time: now.Add(-time.Hour)}},
	}

	v := RenderDashboard(DashboardInput{
		Business:   pagestate.Loaded(backend.BusinessAccount{Name: "Acme"}),
		Insights:   pagestate.Loaded(insights),
		Posts:      pagestate.Loaded(posts),
		Fixtures:   fx,
		Now:        now,
		ResolveURL: func(s string) string { return "http://backend" + s },
	})

	if v.BusinessName != "Acme" {
		t.Errorf("BusinessName = %q", v.BusinessName)
	}
	want := []StatCard{
		{Title: "Total Followers", Value: "60", Live: true},
		{Title: "Total Reach", Value: "2k", Live: true},
		{Title: "Engagement Rate", Value: "5.0%", Live: true},
	}
	if diff := cmp.Diff(want, v.Stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	if len(v.Followers.Points) != 3 || v.Followers.Points[2].Label != "Mon" {
		t.Errorf("followers = %+v", v.Followers.Points)
	}
	if len(v.Posts) != 1 || v.Posts[0].ImageURL != "http://backend/media/a.jpg" || v.Posts[0].When != "1 hour ago" {
		t.Errorf("posts = %+v", v.Posts)
	}
}

func TestRenderCreatorImagesUnsetUntilSuccess(t *testing.T) {
	failed := CreatorState{Prompt: "sunset", Post: pagestate.Fail(pagestate.State[backend.GeneratedPost]{}, "Failed to generate content")}
	v := RenderCreator(failed, nil)
	if v.Images != nil {
		t.Errorf("Images = %v, want nil", v.Images)
	}
	if v.Error != "Failed to generate content" {
		t.Errorf("Error = %q", v.Error)
	}

	ok := CreatorState{
		Prompt:   "sunset",
		Language: "Nepali",
		Post:     pagestate.Loaded(backend.GeneratedPost{ImageURL: "/media/x.png", ExpandedPrompt: "a sunset"}),
	}
	v = RenderCreator(ok, func(s string) string { return "http://localhost:8000" + s })
	if diff := cmp.Diff([]string{"http://localhost:8000/media/x.png"}, v.Images); diff != "" {
		t.Errorf("images mismatch (-want +got):\n%s", diff)
	}
	if !v.Languages[1].Selected || v.Languages[0].Selected {
		t.Errorf("languages = %+v", v.Languages)
	}
	if !v.CanPost || v.CanSchedule {
		t.Errorf("CanPost=%v CanSchedule=%v", v.CanPost, v.CanSchedule)
	}
}

func TestRenderScheduler(t *testing.T) {
	fx := mustFixtures(t)
	v := RenderScheduler(fx.ScheduledPosts, time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC))
	if v.Heading != "Scheduled for April 15, 2024" {
		t.Errorf("Heading = %q", v.Heading)
	}
	if v.Summary != "You have 3 posts scheduled" {
		t.Errorf("Summary = %q", v.Summary)
	}
	if !v.Items[1].Draft || v.Items[0].Draft {
		t.Errorf("draft flags wrong: %+v", v.Items)
	}
	if v.Items[1].When != "Apr 16, 2:30 PM" {
		t.Errorf("When = %q", v.Items[1].When)
	}
}

func TestRenderAnalyticsTabs(t *testing.T) {
	fx := mustFixtures(t)

	v := RenderAnalytics("bogus", fx)
	if v.Active != "overview" || v.ComingSoon {
		t.Errorf("default tab = %q comingSoon=%v", v.Active, v.ComingSoon)
	}
	if len(v.Engagement.Groups) != 7 || v.Engagement.Groups[6].Bars[0].Value != "500" {
		t.Errorf("engagement = %+v", v.Engagement.Groups)
	}

	v = RenderAnalytics("audience", fx)
	if !v.ComingSoon || !v.Tabs[1].Active {
		t.Errorf("audience tab = %+v", v)
	}
}

func TestSentimentBadge(t *testing.T) {
	tests := map[string]Badge{
		"Positive": {Label: "Positive", Variant: "success", Color: "#10b981", Emoji: "😊"},
		"negative": {Label: "Negative", Variant: "destructive", Color: "#ef4444", Emoji: "😞"},
		"Neutral":  {Label: "Neutral", Variant: "secondary", Color: "#6b7280", Emoji: "😐"},
		"Mixed":    {Label: "Mixed", Variant: "outline", Color: "#6b7280", Emoji: "❓"},
	}
	for in, want := range tests {
		if diff := cmp.Diff(want, SentimentBadge(in)); diff != "" {
			t.Errorf("SentimentBadge(%q) mismatch (-want +got):\n%s", in, diff)
		}
	}
}

func TestRenderSentiment(t *testing.T) {
	s := SentimentState{
		Text: "great product",
		Result: pagestate.Loaded(backend.Sentiment{
			Label:      "Positive",
			Confidence: 0.912,
			Scores:     backend.SentimentScores{Positive: 0.912, Neutral: 0.06, Negative: 0.028},
		}),
	}
	v := RenderSentiment(s)
	if !v.HasResult || v.Confidence != "91.2%" || v.CharCount != "13 characters" {
		t.Errorf("view = %+v", v)
	}
	if len(v.Scores) != 3 || v.Scores[2].Percent != "2.8%" || v.Scores[0].Width != 91.2 {
		t.Errorf("scores = %+v", v.Scores)
	}

	v = RenderSentiment(SentimentState{Result: pagestate.Fail(pagestate.State[backend.Sentiment]{}, "Please enter some text to analyze")})
	if v.HasResult || v.Error != "Please enter some text to analyze" {
		t.Errorf("error view = %+v", v)
	}
}

func TestRenderComments(t *testing.T) {
	fx := mustFixtures(t)
	now := time.Now()
	v := RenderComments(fx.Comments, "", pagestate.State[[]backend.Comment]{}, now)
	if len(v.Comments) != 3 || v.Comments[2].Badge.Variant != "destructive" || v.Comments[2].When != "1 day ago" {
		t.Errorf("comments = %+v", v.Comments)
	}

	live := pagestate.Loaded([]backend.Comment{{Username: "ana", Text: "nice"}})
	v = RenderComments(fx.Comments, "m1", live, now)
	if len(v.Live) != 1 || v.Live[0].Author != "@ana" || v.LiveEmpty {
		t.Errorf("live = %+v", v.Live)
	}
}

func TestRenderDMsDefaultsToFirstThread(t *testing.T) {
	fx := mustFixtures(t)
	v := RenderDMs(fx.Threads, "", nil)
	if v.Active.ID != "1" || !v.Threads[0].Active {
		t.Errorf("active = %+v", v.Active)
	}
	v = RenderDMs(fx.Threads, "3", nil)
	if v.Active.Name != "User 3" || v.Threads[0].Active {
		t.Errorf("active = %+v", v.Active)
	}
}

func TestRenderSettings(t *testing.T) {
	fx := mustFixtures(t)
	v := RenderSettings(SettingsInput{
		Authenticated:   true,
		Token:           "abcdefghijklmnop",
		HasRefreshToken: true,
		Profile:         pagestate.Loaded(backend.Profile{Username: "acme", FollowersCount: 1500}),
		Fixtures:        fx,
	})
	if v.TokenPreview != "abcdef…mnop" || v.Handle != "@acme" || v.Followers != "1,500" {
		t.Errorf("settings = %+v", v)
	}
	if v.FirstName != "Admin" || len(v.Preferences) != 2 {
		t.Errorf("profile defaults = %+v", v)
	}
}

func TestRenderFormDropsSecrets(t *testing.T) {
	f := RenderForm(map[string]string{"username": "ana", "password": "pw", "access_token": "tok"}, "bad")
	if f.Value("username") != "ana" || f.Value("password") != "" || f.Value("access_token") != "" {
		t.Errorf("form = %+v", f)
	}
}

func TestRendererWritesEveryPage(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	fx := mustFixtures(t)
	now := time.Now()

	pages := map[string]any{
		"landing":        RenderLanding(fx.Landing, false),
		"login":          RenderForm(nil, "Invalid credentials"),
		"signup":         RenderForm(nil, ""),
		"business_setup": RenderForm(map[string]string{"auto_reply_enabled": "on"}, ""),
		"dashboard":      RenderDashboard(DashboardInput{Fixtures: fx, Now: now}),
		"creator":        RenderCreator(CreatorState{}, nil),
		"scheduler":      RenderScheduler(fx.ScheduledPosts, now),
		"analytics":      RenderAnalytics("overview", fx),
		"comments":       RenderComments(fx.Comments, "", pagestate.State[[]backend.Comment]{}, now),
		"sentiment":      RenderSentiment(SentimentState{}),
		"insights":       RenderInsights(fx),
		"dms":            RenderDMs(fx.Threads, "", []MessageLine{{ID: "m1", Text: "hi"}}),
		"settings":       RenderSettings(SettingsInput{Fixtures: fx}),
		"error":          ErrorView{Title: "Not found", Message: "Nothing here"},
	}

	for name, content := range pages {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)
			page := Page{Shell: NewShell(name, "/"+name, true, "7", "Saved"), Content: content}
			if err := r.Write(w, req, http.StatusOK, name, page); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			body := w.Body.String()
			if !strings.Contains(body, "<html") || !strings.Contains(body, "Saved") {
				t.Errorf("unexpected body: %.200s", body)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestRendererUnknownPage(t *testing.T) {
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	w := httptest.NewRecorder()
	if err := r.Write(w, httptest.NewRequest("GET", "/", nil), 200, "nope", Page{}); err == nil {
		t.Fatal("expected error for unknown page")
	}
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestRendererReloadFromDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("layout.html", `<html>{{template "content" .Content}}</html>`)
	write("hello.html", `{{define "content"}}v1 {{.}}{{end}}`)

	r, err := NewRendererDir(dir)
	if err != nil {
		t.Fatalf("NewRendererDir() error = %v", err)
	}

	render := func() string {
		w := httptest.NewRecorder()
		if err := r.Write(w, httptest.NewRequest("GET", "/", nil), 200, "hello", Page{Content: "x"}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		return w.Body.String()
	}
	if got := render(); got != "<html>v1 x</html>" {
		t.Fatalf("render = %q", got)
	}

	write("hello.html", `{{define "content"}}v2 {{.}}{{end}}`)
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := render(); got != "<html>v2 x</html>" {
		t.Errorf("render after reload = %q", got)
	}

	write("hello.html", `{{define "content"}}{{.Broken`)
	if err := r.Reload(); err == nil {
		t.Fatal("expected parse error")
	}
	if got := render(); got != "<html>v2 x</html>" {
		t.Errorf("previous templates should survive a failed reload, got %q", got)
	}
}
