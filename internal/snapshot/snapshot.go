// Package snapshot defines the wire shape of a full client state exchanged
// by the sync endpoints, and its conversion to and from storage models.
//
// Identifiers are strings on the wire. Client identifiers are discarded on
// upload; downloads carry decimal server identifiers.
package snapshot

import (
	"strconv"
	"time"

	"github.com/dmitrijs2005/taskmate/internal/server/models"
)

// Snapshot is the full client state. A nil Preferences on upload means the
// client sent none and the stored set is left alone.
type Snapshot struct {
	Tasks         []Task             `json:"tasks"`
	Conversations []Conversation     `json:"conversations"`
	Preferences   models.Preferences `json:"preferences"`
}

type Task struct {
	ID            string     `json:"id,omitempty"`
	Title         string     `json:"title"`
	Description   *string    `json:"description,omitempty"`
	Priority      string     `json:"priority"`
	Status        string     `json:"status"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	Project       *string    `json:"project,omitempty"`
	Tags          []string   `json:"tags"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	ExtractedFrom *string    `json:"extractedFrom,omitempty"`
}

type Conversation struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title"`
	Summary   *string   `json:"summary,omitempty"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Message struct {
	ID             string         `json:"id,omitempty"`
	Type           string         `json:"type"`
	Content        string         `json:"content"`
	Timestamp      time.Time      `json:"timestamp"`
	IsVoiceInput   bool           `json:"isVoiceInput,omitempty"`
	ExtractedTasks []string       `json:"extractedTasks,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Model converts a wire task into a storage row owned by userID. The wire
// id is not carried over.
func (t Task) Model(userID int64) *models.Task {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return &models.Task{
		UserID:        userID,
		Title:         t.Title,
		Description:   t.Description,
		Priority:      models.Priority(t.Priority),
		Status:        models.TaskStatus(t.Status),
		DueDate:       t.DueDate,
		Project:       t.Project,
		Tags:          tags,
		ExtractedFrom: t.ExtractedFrom,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func (c Conversation) Model(userID int64) *models.Conversation {
	return &models.Conversation{
		UserID:    userID,
		Title:     c.Title,
		Summary:   c.Summary,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (m Message) Model(conversationID int64) *models.Message {
	return &models.Message{
		ConversationID: conversationID,
		Role:           models.MessageRole(m.Type),
		Content:        m.Content,
		IsVoiceInput:   m.IsVoiceInput,
		ExtractedTasks: m.ExtractedTasks,
		Metadata:       m.Metadata,
		CreatedAt:      m.Timestamp,
	}
}

func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func FromTask(t *models.Task) Task {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return Task{
		ID:            FormatID(t.ID),
		Title:         t.Title,
		Description:   t.Description,
		Priority:      string(t.Priority),
		Status:        string(t.Status),
		DueDate:       t.DueDate,
		Project:       t.Project,
		Tags:          tags,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		ExtractedFrom: t.ExtractedFrom,
	}
}

func FromMessage(m *models.Message) Message {
	return Message{
		ID:             FormatID(m.ID),
		Type:           string(m.Role),
		Content:        m.Content,
		Timestamp:      m.CreatedAt,
		IsVoiceInput:   m.IsVoiceInput,
		ExtractedTasks: m.ExtractedTasks,
		Metadata:       m.Metadata,
	}
}

// Build assembles a snapshot from stored rows. Messages are grouped under
// their conversation keeping the order they were passed in. Nil inputs
// become empty collections so they serialize as [] and {}.
func Build(tasks []*models.Task, convs []*models.Conversation, msgs []*models.Message, prefs models.Preferences) *Snapshot {
	s := &Snapshot{
		Tasks:         make([]Task, 0, len(tasks)),
		Conversations: make([]Conversation, 0, len(convs)),
		Preferences:   prefs,
	}
	if s.Preferences == nil {
		s.Preferences = models.Preferences{}
	}

	for _, t := range tasks {
		s.Tasks = append(s.Tasks, FromTask(t))
	}

	byConv := make(map[int64][]Message, len(convs))
	for _, m := range msgs {
		byConv[m.ConversationID] = append(byConv[m.ConversationID], FromMessage(m))
	}

	for _, c := range convs {
		out := byConv[c.ID]
		if out == nil {
			out = []Message{}
		}
		s.Conversations = append(s.Conversations, Conversation{
			ID:        FormatID(c.ID),
			Title:     c.Title,
			Summary:   c.Summary,
			Messages:  out,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	return s
}
