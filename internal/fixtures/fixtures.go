// Package fixtures loads the static content shown on mock pages.
package fixtures

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var defaultYAML []byte

// Stat is a headline number on the dashboard.
type Stat struct {
	Title  string  `yaml:"title"`
	Value  float64 `yaml:"value"`
	Format string  `yaml:"format"`
	Change string  `yaml:"change"`
}

// Point is one labelled chart value.
type Point struct {
	Label string  `yaml:"label"`
	Value float64 `yaml:"value"`
}

// EngagementPoint is one day of likes and comments.
type EngagementPoint struct {
	Label    string  `yaml:"label"`
	Likes    float64 `yaml:"likes"`
	Comments float64 `yaml:"comments"`
}

// Activity is a recent-activity line.
type Activity struct {
	Text string        `yaml:"text"`
	Ago  time.Duration `yaml:"ago"`
}

// ScheduledPost is a planned post.
type ScheduledPost struct {
	Title    string `yaml:"title"`
	Date     string `yaml:"date"`
	Time     string `yaml:"time"`
	Platform string `yaml:"platform"`
	Status   string `yaml:"status"`
}

// At returns the scheduled time in UTC.
func (p ScheduledPost) At() (time.Time, error) {
	return time.Parse("2006-01-02 15:04", p.Date+" "+p.Time)
}

// Comment is a mock audience comment.
type Comment struct {
	Author    string        `yaml:"author"`
	Text      string        `yaml:"text"`
	Sentiment string        `yaml:"sentiment"`
	Post      string        `yaml:"post"`
	Ago       time.Duration `yaml:"ago"`
}

// Trend is a trending hashtag.
type Trend struct {
	Tag    string `yaml:"tag"`
	Change string `yaml:"change"`
}

// Idea is a content suggestion.
type Idea struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// Thread is a DM conversation summary.
type Thread struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Preview string `yaml:"preview"`
	Time    string `yaml:"time"`
	Online  bool   `yaml:"online"`
}

// Message is a seeded DM line.
type Message struct {
	From string `yaml:"from"`
	Text string `yaml:"text"`
}

// Profile is the settings form default.
type Profile struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
}

// Preference is a settings toggle.
type Preference struct {
	Key         string `yaml:"key"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	Enabled     bool   `yaml:"enabled"`
}

// Landing is the public landing page copy.
type Landing struct {
	Brand    string `yaml:"brand"`
	Headline string `yaml:"headline"`
	Users    string `yaml:"users"`
	Posts    string `yaml:"posts"`
}

// Set is the full fixture document.
type Set struct {
	Stats              []Stat            `yaml:"stats"`
	Followers          []Point           `yaml:"followers"`
	Engagement         []EngagementPoint `yaml:"engagement"`
	FollowerGrowthNote string            `yaml:"follower_growth_note"`
	Activity           []Activity        `yaml:"activity"`
	ScheduledPosts     []ScheduledPost   `yaml:"scheduled_posts"`
	Comments           []Comment         `yaml:"comments"`
	Trending           []Trend           `yaml:"trending"`
	Ideas              []Idea            `yaml:"ideas"`
	Threads            []Thread          `yaml:"threads"`
	Greeting           []Message         `yaml:"greeting"`
	Profile            Profile           `yaml:"profile"`
	Preferences        []Preference      `yaml:"preferences"`
	Landing            Landing           `yaml:"landing"`
}

// Parse decodes a fixture document.
func Parse(b []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for _, p := range s.ScheduledPosts {
		if _, err := p.At(); err != nil {
			return nil, fmt.Errorf("scheduled post %q: %w", p.Title, err)
		}
	}
	return &s, nil
}

// Default returns the embedded fixtures.
func Default() (*Set, error) {
	return Parse(defaultYAML)
}
