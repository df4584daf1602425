package model

import "slices"

// StudyGroup is a named set of members. Owner and members are emails.
type StudyGroup struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Owner   string   `json:"owner"`
	Members []string `json:"members"`
}

// HasMember reports whether email belongs to the group.
func (g StudyGroup) HasMember(email string) bool {
	return slices.Contains(g.Members, email)
}

// GroupChatMessage is one line of a group's chat. Timestamp is Unix milliseconds.
type GroupChatMessage struct {
	ID        string `json:"id"`
	GroupID   string `json:"groupId"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// SharedNote is a note posted to a group.
type SharedNote struct {
	ID        string `json:"id"`
	GroupID   string `json:"groupId"`
	Sender    string `json:"sender"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}
