package view

import (
	"strings"
	"time"

	"github.com/ashureev/socialdash/internal/backend"
	"github.com/ashureev/socialdash/internal/fixtures"
	"github.com/ashureev/socialdash/internal/pagestate"
)

// Shell is the chrome around every page.
type Shell struct {
	Title         string
	Path          string
	Nav           []NavItem
	Chrome        bool
	Authenticated bool
	UserLabel     string
	Flash         string
}

// Page is the data handed to a page template.
type Page struct {
	Shell
	Content any
}

// NewShell builds the shell for an authenticated-area page.
func NewShell(title, path string, authenticated bool, userID, flash string) Shell {
	label := "Guest"
	if authenticated {
		label = "Signed in"
		if userID != "" {
			label = "User " + userID
		}
	}
	return Shell{
		Title:         title,
		Path:          path,
		Nav:           Nav(path),
		Chrome:        true,
		Authenticated: authenticated,
		UserLabel:     label,
		Flash:         flash,
	}
}

// PublicShell builds the shell for pages without the sidebar.
func PublicShell(title, path string, authenticated bool, flash string) Shell {
	return Shell{Title: title, Path: path, Authenticated: authenticated, Flash: flash}
}

// ErrorView is a full-page error.
type ErrorView struct {
	Title   string
	Message string
}

// LandingView is the public landing page.
type LandingView struct {
	fixtures.Landing
	Authenticated bool
}

// RenderLanding maps landing copy to a view.
func RenderLanding(l fixtures.Landing, authenticated bool) LandingView {
	return LandingView{Landing: l, Authenticated: authenticated}
}

// FormView is a submitted form with its values and error.
type FormView struct {
	Values map[string]string
	Error  string
}

// Value returns the submitted value for name.
func (f FormView) Value(name string) string {
	return f.Values[name]
}

// RenderForm maps submitted values to a view. Password fields are never echoed.
func RenderForm(values map[string]string, errMsg string) FormView {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if strings.Contains(k, "password") || k == "access_token" {
			continue
		}
		out[k] = v
	}
	return FormView{Values: out, Error: errMsg}
}

// StatCard is a dashboard headline number.
type StatCard struct {
	Title  string
	Value  string
	Change string
	Live   bool
}

// PostCard is a recent post thumbnail.
type PostCard struct {
	Caption   string
	ImageURL  string
	Permalink string
	When      string
}

// ActivityLine is a recent-activity entry.
type ActivityLine struct {
	Text string
	When string
}

// DashboardInput is everything the dashboard render needs.
type DashboardInput struct {
	Business   pagestate.State[backend.BusinessAccount]
	Insights   pagestate.State[backend.Insights]
	Posts      pagestate.State[[]backend.Post]
	Fixtures   *fixtures.Set
	Now        time.Time
	ResolveURL func(string) string
}

// DashboardView is the rendered dashboard.
type DashboardView struct {
	BusinessName   string
	BusinessFailed bool
	Stats          []StatCard
	InsightsFailed bool
	Followers      LineChart
	Posts          []PostCard
	PostsLoading   bool
	PostsFailed    bool
	Activity       []ActivityLine
}

var statMetrics = map[string]string{
	"Total Followers": "follower_count",
	"Total Reach":     "reach",
}

// RenderDashboard maps fetched and mock data to the dashboard view.
// Stats and the follower series come from insights when present and fall
// back to mock values otherwise.
func RenderDashboard(in DashboardInput) DashboardView {
	v := DashboardView{
		BusinessFailed: in.Business.Failed,
		InsightsFailed: in.Insights.Failed,
		PostsLoading:   in.Posts.Placeholder() && !in.Posts.Failed,
		PostsFailed:    in.Posts.Failed,
	}
	if in.Business.Loaded {
		v.BusinessName = in.Business.Data.Name
	}

	for _, s := range in.Fixtures.Stats {
		card := StatCard{Title: s.Title, Value: FormatStat(s.Value, s.Format), Change: s.Change}
		if in.Insights.Loaded {
			if value, ok := liveStat(in.Insights.Data, s); ok {
				card = StatCard{Title: s.Title, Value: FormatStat(value, s.Format), Live: true}
			}
		}
		v.Stats = append(v.Stats, card)
	}

	labels, values := pointSeries(in.Fixtures.Followers)
	if in.Insights.Loaded {
		if live := in.Insights.Data.MetricSeries("follower_count"); len(live) > 1 {
			values = live
			labels = dayLabels(len(live), in.Now)
		}
	}
	v.Followers = NewLineChart(labels, values)

	resolve := in.ResolveURL
	if resolve == nil {
		resolve = func(s string) string { return s }
	}
	for i, p := range in.Posts.Data {
		if i == 6 {
			break
		}
		img := p.MediaURL
		if p.MediaType == "VIDEO" && p.ThumbnailURL != "" {
			img = p.ThumbnailURL
		}
		v.Posts = append(v.Posts, PostCard{
			Caption:   Truncate(p.Caption, 80),
			ImageURL:  resolve(img),
			Permalink: p.Permalink,
			When:      Ago(p.Timestamp.Time, in.Now),
		})
	}

	for _, a := range in.Fixtures.Activity {
		v.Activity = append(v.Activity, ActivityLine{Text: a.Text, When: Ago(in.Now.Add(-a.Ago), in.Now)})
	}
	return v
}

func liveStat(in backend.Insights, s fixtures.Stat) (float64, bool) {
	if metric, ok := statMetrics[s.Title]; ok {
		return in.MetricTotal(metric)
	}
	if s.Format == "percent" {
		engaged, ok1 := in.MetricTotal("accounts_engaged")
		reach, ok2 := in.MetricTotal("reach")
		if ok1 && ok2 && reach > 0 {
			return engaged / reach * 100, true
		}
	}
	return 0, false
}

func pointSeries(points []fixtures.Point) ([]string, []float64) {
	labels := make([]string, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		labels[i] = p.Label
		values[i] = p.Value
	}
	return labels, values
}

// dayLabels names the last n days ending at now.
func dayLabels(n int, now time.Time) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = now.AddDate(0, 0, i-n+1).Format("Mon")
	}
	return out
}

// CreatorState is the AI creator's page-scoped state.
type CreatorState struct {
	Prompt       string                                 `json:"prompt"`
	Language     string                                 `json:"language"`
	Caption      string                                 `json:"caption"`
	Post         pagestate.State[backend.GeneratedPost] `json:"post"`
	ScheduleDate string                                 `json:"schedule_date"`
	Published    *backend.PublishResult                 `json:"published,omitempty"`
}

// CaptionLanguages are the selectable caption languages.
var CaptionLanguages = []string{"English", "Nepali"}

// SelectedLanguage returns the chosen language, defaulting to English.
func (s CreatorState) SelectedLanguage() string {
	for _, l := range CaptionLanguages {
		if s.Language == l {
			return l
		}
	}
	return CaptionLanguages[0]
}

// CreatorView is the rendered AI creator.
type CreatorView struct {
	Prompt         string
	Caption        string
	ExpandedPrompt string
	Languages      []Option
	Images         []string
	Error          string
	ScheduleDate   string
	CanSchedule    bool
	CanPost        bool
	PostLink       string
}

// Option is a select option.
type Option struct {
	Value    string
	Selected bool
}

// RenderCreator maps creator state to a view. Images stay unset until a
// generation has succeeded.
func RenderCreator(s CreatorState, resolve func(string) string) CreatorView {
	if resolve == nil {
		resolve = func(v string) string { return v }
	}
	v := CreatorView{
		Prompt:       s.Prompt,
		Caption:      s.Caption,
		ScheduleDate: s.ScheduleDate,
		CanSchedule:  s.ScheduleDate != "",
	}
	lang := s.SelectedLanguage()
	for _, l := range CaptionLanguages {
		v.Languages = append(v.Languages, Option{Value: l, Selected: l == lang})
	}
	if s.Post.Loaded {
		v.ExpandedPrompt = s.Post.Data.ExpandedPrompt
		if s.Post.Data.ImageURL != "" {
			v.Images = []string{resolve(s.Post.Data.ImageURL)}
		}
	}
	if s.Post.Failed {
		v.Error = s.Post.Message
	}
	v.CanPost = strings.TrimSpace(v.Caption) != "" || len(v.Images) > 0
	if s.Published != nil {
		v.PostLink = s.Published.PostLink
	}
	return v
}

// ScheduleItem is one row in the scheduler.
type ScheduleItem struct {
	Title    string
	When     string
	Platform string
	Status   string
	Draft    bool
}

// SchedulerView is the rendered scheduler.
type SchedulerView struct {
	SelectedDate string
	Heading      string
	Summary      string
	Items        []ScheduleItem
}

// RenderScheduler lists every scheduled post under the selected date.
func RenderScheduler(posts []fixtures.ScheduledPost, selected time.Time) SchedulerView {
	v := SchedulerView{
		SelectedDate: selected.Format("2006-01-02"),
		Heading:      "Scheduled for " + LongDate(selected),
	}
	for _, p := range posts {
		at, err := p.At()
		when := p.Date + " " + p.Time
		if err == nil {
			when = at.Format("Jan 2, 3:04 PM")
		}
		v.Items = append(v.Items, ScheduleItem{
			Title:    p.Title,
			When:     when,
			Platform: p.Platform,
			Status:   p.Status,
			Draft:    strings.EqualFold(p.Status, "draft"),
		})
	}
	noun := "posts"
	if len(v.Items) == 1 {
		noun = "post"
	}
	v.Summary = "You have " + FormatCount(float64(len(v.Items))) + " " + noun + " scheduled"
	return v
}

// Tab is one analytics tab.
type Tab struct {
	Key    string
	Label  string
	Href   string
	Active bool
}

// AnalyticsView is the rendered analytics page.
type AnalyticsView struct {
	Tabs       []Tab
	Active     string
	ComingSoon bool
	Followers  LineChart
	Engagement BarChart
	Note       string
}

var analyticsTabs = []Tab{
	{Key: "overview", Label: "Overview"},
	{Key: "audience", Label: "Audience"},
	{Key: "posts", Label: "Posts"},
}

// RenderAnalytics maps the selected tab and mock series to a view.
func RenderAnalytics(tab string, fx *fixtures.Set) AnalyticsView {
	active := analyticsTabs[0].Key
	for _, t := range analyticsTabs {
		if t.Key == tab {
			active = t.Key
		}
	}

	v := AnalyticsView{Active: active}
	for _, t := range analyticsTabs {
		t.Href = "/analytics?tab=" + t.Key
		t.Active = t.Key == active
		v.Tabs = append(v.Tabs, t)
	}
	if active != "overview" {
		v.ComingSoon = true
		return v
	}

	labels, values := pointSeries(fx.Followers)
	v.Followers = NewLineChart(labels, values)
	v.Note = fx.FollowerGrowthNote

	eLabels := make([]string, len(fx.Engagement))
	likes := make([]float64, len(fx.Engagement))
	comments := make([]float64, len(fx.Engagement))
	for i, e := range fx.Engagement {
		eLabels[i] = e.Label
		likes[i] = e.Likes
		comments[i] = e.Comments
	}
	v.Engagement = NewBarChart(eLabels,
		Series{Name: "likes", Values: likes},
		Series{Name: "comments", Values: comments},
	)
	return v
}

// Badge is a sentiment label with its presentation.
type Badge struct {
	Label   string
	Variant string
	Color   string
	Emoji   string
}

// SentimentBadge maps a sentiment label to its presentation.
func SentimentBadge(label string) Badge {
	switch strings.ToLower(label) {
	case "positive":
		return Badge{Label: "Positive", Variant: "success", Color: "#10b981", Emoji: "😊"}
	case "negative":
		return Badge{Label: "Negative", Variant: "destructive", Color: "#ef4444", Emoji: "😞"}
	case "neutral":
		return Badge{Label: "Neutral", Variant: "secondary", Color: "#6b7280", Emoji: "😐"}
	default:
		return Badge{Label: label, Variant: "outline", Color: "#6b7280", Emoji: "❓"}
	}
}

// CommentCard is one comment.
type CommentCard struct {
	Author string
	Text   string
	Post   string
	When   string
	Badge  Badge
}

// CommentsView is the rendered comments page.
type CommentsView struct {
	Comments   []CommentCard
	MediaID    string
	Live       []CommentCard
	LiveFailed bool
	LiveEmpty  bool
}

// RenderComments maps mock comments and optional live comments to a view.
func RenderComments(mock []fixtures.Comment, mediaID string, live pagestate.State[[]backend.Comment], now time.Time) CommentsView {
	v := CommentsView{MediaID: mediaID}
	for _, c := range mock {
		v.Comments = append(v.Comments, CommentCard{
			Author: c.Author,
			Text:   c.Text,
			Post:   c.Post,
			When:   Ago(now.Add(-c.Ago), now),
			Badge:  SentimentBadge(c.Sentiment),
		})
	}
	if mediaID == "" {
		return v
	}
	v.LiveFailed = live.Failed
	for _, c := range live.Data {
		v.Live = append(v.Live, CommentCard{
			Author: "@" + c.Username,
			Text:   c.Text,
			When:   Ago(c.Timestamp.Time, now),
			Badge:  SentimentBadge(""),
		})
	}
	v.LiveEmpty = live.Loaded && len(v.Live) == 0
	return v
}

// SentimentState is the sentiment page's page-scoped state.
type SentimentState struct {
	Text   string                             `json:"text"`
	Result pagestate.State[backend.Sentiment] `json:"result"`
}

// ScoreBar is one probability bar.
type ScoreBar struct {
	Label   string
	Percent string
	Width   float64
	Color   string
}

// SentimentView is the rendered sentiment page.
type SentimentView struct {
	Text       string
	CharCount  string
	Error      string
	HasResult  bool
	Badge      Badge
	Confidence string
	Cleaned    string
	Scores     []ScoreBar
}

// RenderSentiment maps sentiment state to a view.
func RenderSentiment(s SentimentState) SentimentView {
	v := SentimentView{
		Text:      s.Text,
		CharCount: FormatCount(float64(len([]rune(s.Text)))) + " characters",
	}
	if s.Result.Failed {
		v.Error = s.Result.Message
	}
	if !s.Result.Loaded {
		return v
	}

	r := s.Result.Data
	v.HasResult = true
	v.Badge = SentimentBadge(r.Label)
	v.Confidence = FormatPercent(r.Confidence * 100)
	v.Cleaned = r.CleanedText
	for _, sc := range []struct {
		label string
		value float64
	}{
		{"Positive", r.Scores.Positive},
		{"Neutral", r.Scores.Neutral},
		{"Negative", r.Scores.Negative},
	} {
		v.Scores = append(v.Scores, ScoreBar{
			Label:   sc.label,
			Percent: FormatPercent(sc.value * 100),
			Width:   round1(clamp(sc.value*100, 0, 100)),
			Color:   SentimentBadge(sc.label).Color,
		})
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// InsightsView is the rendered insights page.
type InsightsView struct {
	Trending []fixtures.Trend
	Ideas    []fixtures.Idea
}

// RenderInsights maps mock insights to a view.
func RenderInsights(fx *fixtures.Set) InsightsView {
	return InsightsView{Trending: fx.Trending, Ideas: fx.Ideas}
}

// ThreadItem is one conversation in the inbox list.
type ThreadItem struct {
	fixtures.Thread
	Active bool
	Href   string
}

// MessageLine is one rendered DM.
type MessageLine struct {
	ID   string
	Text string
	Mine bool
	When string
}

// DMView is the rendered inbox.
type DMView struct {
	Threads  []ThreadItem
	Active   fixtures.Thread
	Messages []MessageLine
}

// RenderDMs marks the active thread and lays out its messages.
func RenderDMs(threads []fixtures.Thread, activeID string, messages []MessageLine) DMView {
	v := DMView{Messages: messages}
	if activeID == "" && len(threads) > 0 {
		activeID = threads[0].ID
	}
	for _, t := range threads {
		item := ThreadItem{Thread: t, Active: t.ID == activeID, Href: "/dms?thread=" + t.ID}
		if item.Active {
			v.Active = t
		}
		v.Threads = append(v.Threads, item)
	}
	return v
}

// SettingsInput is everything the settings render needs.
type SettingsInput struct {
	Authenticated   bool
	Token           string
	UserID          string
	BusinessID      string
	HasRefreshToken bool
	DeviceSince     time.Time
	Profile         pagestate.State[backend.Profile]
	Fixtures        *fixtures.Set
}

// SettingsView is the rendered settings page.
type SettingsView struct {
	Authenticated   bool
	TokenPreview    string
	UserID          string
	BusinessID      string
	HasRefreshToken bool
	DeviceSince     string
	FirstName       string
	LastName        string
	Email           string
	Handle          string
	Followers       string
	ProfileFailed   bool
	Preferences     []fixtures.Preference
}

// RenderSettings maps the session and profile to a view.
func RenderSettings(in SettingsInput) SettingsView {
	v := SettingsView{
		Authenticated:   in.Authenticated,
		TokenPreview:    MaskToken(in.Token),
		UserID:          in.UserID,
		BusinessID:      in.BusinessID,
		HasRefreshToken: in.HasRefreshToken,
		FirstName:       in.Fixtures.Profile.FirstName,
		LastName:        in.Fixtures.Profile.LastName,
		Email:           in.Fixtures.Profile.Email,
		ProfileFailed:   in.Profile.Failed,
		Preferences:     in.Fixtures.Preferences,
	}
	if !in.DeviceSince.IsZero() {
		v.DeviceSince = LongDate(in.DeviceSince)
	}
	if in.Profile.Loaded {
		p := in.Profile.Data
		if p.Username != "" {
			v.Handle = "@" + p.Username
		}
		v.Followers = FormatCount(float64(p.FollowersCount))
	}
	return v
}
