package notion

import (
	"strings"
	"time"

	"notioncal/internal/config"
	"notioncal/internal/service"
)

// Schema names the page properties a record is read from.
type Schema struct {
	Task    string // title property
	Due     string // date property
	EventID string // rich_text property holding the calendar event id
	Status  string // status or select property
}

// DefaultSchema returns the conventional property names.
func DefaultSchema() Schema {
	return Schema{Task: "Task", Due: "Due Date", EventID: "GCal_ID", Status: "Status"}
}

// SchemaFromConfig fills unset names from DefaultSchema.
func SchemaFromConfig(p config.PropConfig) Schema {
	s := DefaultSchema()
	if p.Task != "" {
		s.Task = p.Task
	}
	if p.Due != "" {
		s.Due = p.Due
	}
	if p.EventID != "" {
		s.EventID = p.EventID
	}
	if p.Status != "" {
		s.Status = p.Status
	}
	return s
}

// Wire types. Only the fields the sync reads are declared.

type database struct {
	DataSources []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data_sources"`
}

type queryRequest struct {
	Filter      *timestampFilter `json:"filter,omitempty"`
	StartCursor string           `json:"start_cursor,omitempty"`
	PageSize    int              `json:"page_size,omitempty"`
}

type timestampFilter struct {
	Timestamp      string        `json:"timestamp"`
	LastEditedTime dateCondition `json:"last_edited_time"`
}

type dateCondition struct {
	OnOrAfter string `json:"on_or_after"`
}

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type page struct {
	Object         string                   `json:"object"`
	ID             string                   `json:"id"`
	LastEditedTime time.Time                `json:"last_edited_time"`
	Properties     map[string]propertyValue `json:"properties"`
}

// propertyValue is a tagged union: Type selects which variant is populated.
type propertyValue struct {
	Type     string     `json:"type"`
	Title    []richText `json:"title,omitempty"`
	RichText []richText `json:"rich_text,omitempty"`
	Date     *dateValue `json:"date,omitempty"`
	Status   *option    `json:"status,omitempty"`
	Select   *option    `json:"select,omitempty"`
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type dateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end"`
}

type option struct {
	Name string `json:"name"`
}

type pageUpdate struct {
	Properties map[string]richTextProperty `json:"properties"`
}

type richTextProperty struct {
	RichText []richTextInput `json:"rich_text"`
}

type richTextInput struct {
	Type string      `json:"type"`
	Text textContent `json:"text"`
}

type textContent struct {
	Content string `json:"content"`
}

type errorBody struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// record converts a page into a service.Record. Raw type tags are not
// visible past this point.
func (p page) record(s Schema) service.Record {
	r := service.Record{
		ID:         p.ID,
		LastEdited: p.LastEditedTime,
	}

	for _, name := range []string{s.Task, s.Due, s.EventID} {
		if _, ok := p.Properties[name]; !ok {
			r.Missing = append(r.Missing, name)
		}
	}

	if v, ok := p.Properties[s.Task]; ok && v.Type == "title" {
		r.Title = joinText(v.Title)
	}
	if v, ok := p.Properties[s.Due]; ok && v.Type == "date" && v.Date != nil && v.Date.Start != "" {
		due := &service.DueDate{Start: v.Date.Start}
		if v.Date.End != nil {
			due.End = *v.Date.End
		}
		r.Due = due
	}
	if v, ok := p.Properties[s.EventID]; ok && v.Type == "rich_text" {
		r.EventID = joinText(v.RichText)
	}
	if v, ok := p.Properties[s.Status]; ok {
		r.Status = v.optionName()
	}

	return r
}

// optionName returns the selected option of a status or select property.
func (v propertyValue) optionName() string {
	switch v.Type {
	case "status":
		if v.Status != nil {
			return v.Status.Name
		}
	case "select":
		if v.Select != nil {
			return v.Select.Name
		}
	}
	return ""
}

func joinText(parts []richText) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.PlainText)
	}
	return strings.TrimSpace(b.String())
}
