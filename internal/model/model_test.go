package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTaskStatus_ActiveTerminal(t *testing.T) {
	t.Parallel()
	for _, s := range []TaskStatus{TaskPending, TaskStarted} {
		require.True(t, s.Active(), s)
		require.False(t, s.Terminal(), s)
	}
	for _, s := range []TaskStatus{TaskSuccess, TaskFailure} {
		require.False(t, s.Active(), s)
		require.True(t, s.Terminal(), s)
	}
}

func TestBook_Deletable(t *testing.T) {
	t.Parallel()
	require.True(t, Book{Status: BookComplete}.Deletable())
	require.False(t, Book{Status: BookProcessing}.Deletable())
	require.False(t, Book{}.Deletable())
}

func TestBook_Initials(t *testing.T) {
	t.Parallel()
	require.Equal(t, "?", Book{}.Initials())
	require.Equal(t, "DU", Book{Title: "Dune"}.Initials())
	require.Equal(t, "TR", Book{Title: "the lord of the rings"}.Initials())
}

func TestSortChatsByUpdated(t *testing.T) {
	t.Parallel()
	now := time.Now()
	chats := []ChatSession{
		{ID: "old", UpdatedAt: Timestamp{now.Add(-time.Hour)}},
		{ID: "new", UpdatedAt: Timestamp{now}},
		{ID: "mid", UpdatedAt: Timestamp{now.Add(-time.Minute)}},
	}
	SortChatsByUpdated(chats)
	require.Equal(t, []string{"new", "mid", "old"}, []string{chats[0].ID, chats[1].ID, chats[2].ID})
}

func TestTranscript_AppendRollback(t *testing.T) {
	t.Parallel()
	var tr Transcript
	u := ChatMessage{Role: RoleUser, Content: "hi"}
	tr.Append(u)
	require.Equal(t, 1, tr.Len())

	require.False(t, tr.Rollback(ChatMessage{Role: RoleUser, Content: "other"}))
	require.True(t, tr.Rollback(u))
	require.Equal(t, 0, tr.Len())
	require.False(t, tr.Rollback(u))

	// Messages returns a copy.
	tr.Append(u)
	msgs := tr.Messages()
	msgs[0].Content = "mutated"
	last, ok := tr.Last()
	require.True(t, ok)
	require.Equal(t, "hi", last.Content)
}

func TestChatDetail_Transcript(t *testing.T) {
	t.Parallel()
	d := ChatDetail{Messages: []ExchangePair{
		{Question: "q1", Answer: "a1", DownloadedFiles: []SourceFile{{Name: "f.pdf", URL: "u"}}},
		{Question: "q2"},
		{Answer: "a3"},
	}}
	msgs := d.Transcript().Messages()
	require.Len(t, msgs, 4)
	require.Equal(t, RoleUser, msgs[0].Role)
	require.Equal(t, "a1", msgs[1].Content)
	require.Len(t, msgs[1].DownloadedFiles, 1)
	require.Equal(t, "q2", msgs[2].Content)
	require.Equal(t, RoleAssistant, msgs[3].Role)
	require.NotNil(t, msgs[3].DownloadedFiles)
}

func TestComputeStats(t *testing.T) {
	t.Parallel()
	st := ComputeStats(
		[]Book{{Status: BookComplete}, {Status: BookProcessing}, {Status: BookComplete}, {Status: "weird"}},
		[]ChatSession{{ID: "1"}, {ID: "2"}},
	)
	require.Equal(t, DashboardStats{TotalBooks: 4, BooksReady: 2, BooksProcessing: 1, TotalChats: 2}, st)
}

func TestProfile_DisplayRole(t *testing.T) {
	t.Parallel()
	require.Equal(t, "Admin", Profile{Role: "admin"}.DisplayRole())
	require.Equal(t, "User", Profile{Role: "user"}.DisplayRole())
	require.Equal(t, "User", Profile{}.DisplayRole())
}

func TestTimestamp_Unmarshal(t *testing.T) {
	t.Parallel()
	for _, in := range []string{
		`"2024-05-01T12:30:00Z"`,
		`"2024-05-01T12:30:00.123456"`,
		`"2024-05-01T12:30:00"`,
		`"2024-05-01 12:30:00"`,
	} {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(in), &ts), in)
		require.Equal(t, 2024, ts.Year(), in)
		require.Equal(t, 30, ts.Minute(), in)
	}

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	require.True(t, ts.IsZero())
	require.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestTranscript_Clone(t *testing.T) {
	t.Parallel()
	var tr Transcript
	tr.Append(ChatMessage{Role: RoleUser, Content: "a"})
	c := tr.Clone()
	c.Append(ChatMessage{Role: RoleAssistant, Content: "b"})
	require.Equal(t, 1, tr.Len())
	require.Equal(t, 2, c.Len())
}
