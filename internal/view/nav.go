package view

import "strings"

// NavItem is one sidebar link.
type NavItem struct {
	Label  string
	Href   string
	Icon   string
	Active bool
}

var sidebar = []NavItem{
	{Label: "Dashboard", Href: "/dashboard", Icon: "grid"},
	{Label: "AI Creator", Href: "/create", Icon: "spark"},
	{Label: "Scheduler", Href: "/schedule", Icon: "calendar"},
	{Label: "Analytics", Href: "/analytics", Icon: "chart"},
	{Label: "Comments", Href: "/comments", Icon: "chat"},
	{Label: "Sentiment", Href: "/sentiment", Icon: "smile"},
	{Label: "DM Assistant", Href: "/dms", Icon: "inbox"},
	{Label: "Insights", Href: "/insights", Icon: "bulb"},
}

// Nav returns the sidebar with the item for path marked active.
func Nav(path string) []NavItem {
	items := make([]NavItem, len(sidebar))
	copy(items, sidebar)
	for i := range items {
		items[i].Active = path == items[i].Href || strings.HasPrefix(path, items[i].Href+"/")
	}
	return items
}
