package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatObjectRoundTripPreservesUnknownFields(t *testing.T) {
	raw := `{
		"models": ["llama3"],
		"messages": [{"role": "user", "content": "hi"}],
		"history": {"currentId": "abc", "messages": {}},
		"params": {"temperature": 0.2},
		"tags": ["work"]
	}`

	var chat ChatObject
	require.NoError(t, json.Unmarshal([]byte(raw), &chat))
	assert.Equal(t, []string{"llama3"}, chat.Models)
	require.Len(t, chat.Messages, 1)

	out, err := json.Marshal(chat)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.JSONEq(t, `{"currentId": "abc", "messages": {}}`, string(decoded["history"]))
	assert.JSONEq(t, `{"temperature": 0.2}`, string(decoded["params"]))
	assert.JSONEq(t, `["work"]`, string(decoded["tags"]))
}

func TestChatObjectTypedFieldsWin(t *testing.T) {
	var chat ChatObject
	require.NoError(t, json.Unmarshal([]byte(`{"models": ["old"], "messages": []}`), &chat))

	chat.Models = []string{"new"}
	chat.Messages = append(chat.Messages, Message{Role: "user", Content: "q"})

	out, err := json.Marshal(chat)
	require.NoError(t, err)

	var decoded struct {
		Models   []string  `json:"models"`
		Messages []Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, []string{"new"}, decoded.Models)
	require.Len(t, decoded.Messages, 1)
}

func TestChatObjectSetGet(t *testing.T) {
	var chat ChatObject
	require.NoError(t, chat.Set("title", "my chat"))

	raw, ok := chat.Get("title")
	require.True(t, ok)
	assert.Equal(t, `"my chat"`, string(raw))

	_, ok = chat.Get("missing")
	assert.False(t, ok)
}

func TestChatObjectMarshalEmpty(t *testing.T) {
	// A zero chat still marshals with empty arrays, not nulls.
	out, err := json.Marshal(ChatObject{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"models": [], "messages": []}`, string(out))
}

func TestRetrievalOptionsOmitEmpty(t *testing.T) {
	out, err := json.Marshal(QueryCollectionsForm{
		CollectionNames: []string{"kb-1"},
		Query:           "q",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"collection_names": ["kb-1"], "query": "q"}`, string(out))
}
