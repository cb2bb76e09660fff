package history_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/llmcore/history"
	"goa.design/llmcore/model"
)

func TestManager_SystemIsPinnedFirst(t *testing.T) {
	m := history.NewManager(model.HistoryModeFull)
	m.SetSystem("be helpful")
	m.AddMessage(model.RoleUser, "hi")

	msgs := m.Messages(model.Info{MaxRequestTokens: 10000})
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleSystem, msgs[0].Role)
	assert.Equal(t, "be helpful", msgs[0].Content.Text())
}

func TestManager_DynamicModeDropsOldest(t *testing.T) {
	m := history.NewManager(model.HistoryModeDynamic)
	for i := 0; i < 50; i++ {
		m.AddMessage(model.RoleUser, strings.Repeat("word ", 50))
	}
	msgs := m.Messages(model.Info{MaxRequestTokens: 600})
	assert.Less(t, len(msgs), 50)
}

func TestManager_SerializeDeserializeRoundTrip(t *testing.T) {
	m := history.NewManager(model.HistoryModeFull)
	m.AddMessage(model.RoleUser, "hello")
	m.AddMessage(model.RoleAssistant, "hi there")

	data, err := m.SerializeHistory()
	require.NoError(t, err)

	m2 := history.NewManager(model.HistoryModeFull)
	require.NoError(t, m2.DeserializeHistory(data))

	assert.Equal(t, m.GetMessages(), m2.GetMessages())
}

func TestManager_ClearDropsNonSystemMessages(t *testing.T) {
	m := history.NewManager(model.HistoryModeFull)
	m.SetSystem("sys")
	m.AddMessage(model.RoleUser, "hi")
	m.Clear()
	msgs := m.Messages(model.Info{MaxRequestTokens: 1000})
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleSystem, msgs[0].Role)
}
