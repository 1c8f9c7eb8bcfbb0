package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/answer-engine/internal/model"
)

var docs = []model.Document{
	{Title: "Scott Derrickson", Sentences: []string{
		"Scott Derrickson is an American director.",
		"Scott Derrickson directed Doctor Strange for Marvel Studios.",
	}},
	{Title: "Ed Wood", Sentences: []string{
		"Edward Davis Wood Jr. was an American filmmaker.",
	}},
	{Title: "Doctor Strange", Sentences: []string{
		"Doctor Strange was released in 2016 by Marvel Studios.",
	}},
}

func TestExtract_BridgeRoles(t *testing.T) {
	refs := []model.FactRef{
		{Title: "Scott Derrickson", SentenceIndex: 0},
		{Title: "Scott Derrickson", SentenceIndex: 1},
		{Title: "Doctor Strange", SentenceIndex: 0},
	}
	p := Extract("q1", "Which studio released the film?", model.Category{Type: model.TypeBridge, Level: model.LevelMedium}, refs, docs, "Marvel Studios")

	require.Len(t, p.Hops, 3)
	assert.Equal(t, []model.Role{model.RoleStarter, model.RoleBridge, model.RoleFinal},
		[]model.Role{p.Hops[0].Role, p.Hops[1].Role, p.Hops[2].Role})
	assert.Equal(t, "Marvel Studios", p.Answer)
	assert.Nil(t, p.ComparisonDimension)
	require.NotNil(t, p.BridgeEntity)
	assert.Equal(t, "Scott Derrickson", *p.BridgeEntity)
}

func TestExtract_SkipsOutOfRange(t *testing.T) {
	refs := []model.FactRef{
		{Title: "Scott Derrickson", SentenceIndex: 0},
		{Title: "Scott Derrickson", SentenceIndex: 9},
		{Title: "Missing Doc", SentenceIndex: 0},
		{Title: "Ed Wood", SentenceIndex: -1},
		{Title: "Ed Wood", SentenceIndex: 0},
	}
	p := Extract("q2", "q", model.Category{Type: model.TypeBridge, Level: model.LevelEasy}, refs, docs, "a")

	require.Len(t, p.Hops, 2)
	assert.Equal(t, "Scott Derrickson", p.Hops[0].DocumentID)
	assert.Equal(t, model.RoleStarter, p.Hops[0].Role)
	assert.Equal(t, "Ed Wood", p.Hops[1].DocumentID)
	assert.Equal(t, model.RoleFinal, p.Hops[1].Role)
	for _, h := range p.Hops {
		assert.NotEqual(t, 9, h.SentenceIndex)
	}
}

func TestExtract_SingleBridgeHop(t *testing.T) {
	refs := []model.FactRef{{Title: "Ed Wood", SentenceIndex: 0}}
	p := Extract("q3", "q", model.Category{Type: model.TypeBridge, Level: model.LevelEasy}, refs, docs, "a")
	require.Len(t, p.Hops, 1)
	assert.Equal(t, model.RoleStarter, p.Hops[0].Role)
	assert.Nil(t, p.BridgeEntity)
}

func TestExtract_Comparison(t *testing.T) {
	refs := []model.FactRef{
		{Title: "Scott Derrickson", SentenceIndex: 0},
		{Title: "Ed Wood", SentenceIndex: 0},
	}
	p := Extract("q4", "Were Scott Derrickson and Ed Wood of the same nationality?",
		model.Category{Type: model.TypeComparison, Level: model.LevelHard}, refs, docs, "yes")

	for _, h := range p.Hops {
		assert.Equal(t, model.RoleComparison, h.Role)
	}
	require.NotNil(t, p.ComparisonDimension)
	assert.Equal(t, UnknownDimension, *p.ComparisonDimension)
	assert.Nil(t, p.BridgeEntity)
}

func TestBridgeEntity(t *testing.T) {
	shared := bridgeEntity(
		model.HopRecord{Entities: []string{"Marvel Studios", "Zed"}},
		model.HopRecord{Entities: []string{"Zed", "Marvel Studios"}},
	)
	require.NotNil(t, shared)
	assert.Equal(t, "Marvel Studios", *shared)

	mention := bridgeEntity(
		model.HopRecord{Entities: []string{"Doctor Strange"}},
		model.HopRecord{Entities: []string{"It"}, SentenceText: "it was a sequel to doctor strange."},
	)
	require.NotNil(t, mention)
	assert.Equal(t, "Doctor Strange", *mention)

	assert.Nil(t, bridgeEntity(
		model.HopRecord{Entities: []string{"Alpha"}},
		model.HopRecord{Entities: []string{"Beta"}, SentenceText: "nothing shared"},
	))
}

func TestComparisonDimension(t *testing.T) {
	tests := []struct{ question, want string }{
		{"Which was founded first, A or B?", "date"},
		{"Which city is larger?", "size"},
		{"Who has more titles?", "quantity"},
		{"Where is the museum?", "location"},
		{"Which river is longer?", "duration"},
		{"Are both directors from France?", UnknownDimension},
		{"Which one started before the merger?", "date"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ComparisonDimension(tt.question), tt.question)
	}
}

func TestEntities(t *testing.T) {
	got := Entities(`The film "Ed Wood" was directed by Tim Burton in 1994 for Touchstone.`)
	assert.Equal(t, []string{"Ed Wood", "The", "Tim Burton", "Touchstone.", `Wood"`}, got)

	assert.Empty(t, Entities(`nothing here "" at all`))
}
