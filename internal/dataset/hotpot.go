package dataset

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/answer-engine/internal/model"
)

// ParseContext decodes a HotpotQA context cell. Two shapes are accepted:
// {"title": [...], "sentences": [[...], ...]} as exported by pandas, and a
// {title: [sentences]} mapping. Unparseable cells yield no documents.
func ParseContext(cell string) ([]model.Document, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return nil, nil
	}
	v, err := ParseLiteral(cell)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: context")
	}

	switch c := v.(type) {
	case map[string]any:
		if titles, ok := c["title"]; ok {
			return zipContext(asSlice(titles), asSlice(c["sentences"])), nil
		}
		// {title: [sentences]} has no stable key order once decoded, so
		// recover the written order from the cell text.
		var docs []model.Document
		for _, title := range orderedKeys(cell, c) {
			docs = append(docs, model.Document{Title: title, Sentences: stringList(c[title])})
		}
		return docs, nil
	case []any:
		// [[title, [sentences]], ...] as in the raw HotpotQA JSON.
		var docs []model.Document
		for _, item := range c {
			pair := asSlice(item)
			if len(pair) != 2 {
				continue
			}
			docs = append(docs, model.Document{Title: stringify(pair[0]), Sentences: stringList(pair[1])})
		}
		return docs, nil
	default:
		return nil, eris.Errorf("dataset: context: unexpected %T", v)
	}
}

func zipContext(titles, sentences []any) []model.Document {
	n := min(len(titles), len(sentences))
	docs := make([]model.Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, model.Document{Title: stringify(titles[i]), Sentences: stringList(sentences[i])})
	}
	return docs
}

// orderedKeys returns the keys of m in the order their quoted forms first
// appear in src.
func orderedKeys(src string, m map[string]any) []string {
	type pos struct {
		key string
		at  int
	}
	var found []pos
	for k := range m {
		at := -1
		for _, q := range []string{"'", `"`} {
			if i := strings.Index(src, q+k+q); i >= 0 && (at < 0 || i < at) {
				at = i
			}
		}
		found = append(found, pos{k, at})
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].at != found[j].at {
			return found[i].at < found[j].at
		}
		return found[i].key < found[j].key
	})
	keys := make([]string, len(found))
	for i, f := range found {
		keys[i] = f.key
	}
	return keys
}

// ParseSupportingFacts decodes a {"title": [...], "sent_id": [...]} cell,
// or a list of [title, sent_id] pairs. Unparseable cells yield no facts.
func ParseSupportingFacts(cell string) []model.FactRef {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return nil
	}
	v, err := ParseLiteral(cell)
	if err != nil {
		return nil
	}

	var facts []model.FactRef
	switch c := v.(type) {
	case map[string]any:
		titles, ids := asSlice(c["title"]), asSlice(c["sent_id"])
		for i := 0; i < min(len(titles), len(ids)); i++ {
			if id, ok := asInt(ids[i]); ok {
				facts = append(facts, model.FactRef{Title: stringify(titles[i]), SentenceIndex: id})
			}
		}
	case []any:
		for _, item := range c {
			pair := asSlice(item)
			if len(pair) != 2 {
				continue
			}
			if id, ok := asInt(pair[1]); ok {
				facts = append(facts, model.FactRef{Title: stringify(pair[0]), SentenceIndex: id})
			}
		}
	}
	return facts
}

// FormatSupportingFacts renders facts the way they are read back:
// {'title': [...], 'sent_id': [...]}.
func FormatSupportingFacts(facts []model.FactRef) string {
	titles := make([]string, len(facts))
	ids := make([]string, len(facts))
	for i, f := range facts {
		titles[i] = pyQuote(f.Title)
		ids[i] = strconv.Itoa(f.SentenceIndex)
	}
	return fmt.Sprintf("{'title': [%s], 'sent_id': [%s]}", strings.Join(titles, ", "), strings.Join(ids, ", "))
}

// pyQuote renders s as a Python string literal the way repr() does.
func pyQuote(s string) string {
	quote := "'"
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		quote = `"`
	}
	r := strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	body := r.Replace(s)
	if quote == "'" {
		body = strings.ReplaceAll(body, "'", `\'`)
	}
	return quote + body + quote
}

// QAOptions selects the columns of a multi-hop QA table.
type QAOptions struct {
	// DefaultType and DefaultLevel fill rows without type or level cells.
	DefaultType  string
	DefaultLevel string
}

// LoadQA reads a multi-hop QA table with columns id, question, context and
// optionally answer, type, level and supporting_facts. Rows without a
// question or with an unusable context are dropped.
func (s *Source) LoadQA(ctx context.Context, location string, opts QAOptions) ([]model.QAExample, error) {
	if opts.DefaultType == "" {
		opts.DefaultType = model.TypeBridge
	}
	if opts.DefaultLevel == "" {
		opts.DefaultLevel = model.LevelMedium
	}

	t, err := s.ReadTable(ctx, location)
	if err != nil {
		return nil, err
	}
	if err := t.Require("question", "context"); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("source", location))
	var out []model.QAExample
	dropped := 0
	for i := range t.Rows {
		q := strings.TrimSpace(t.Get(i, "question"))
		if q == "" {
			dropped++
			continue
		}
		docs, err := ParseContext(t.Get(i, "context"))
		if err != nil || len(docs) == 0 {
			log.Debug("dataset: dropping row with unusable context", zap.Int("row", i), zap.Error(err))
			dropped++
			continue
		}
		ex := model.QAExample{
			ID:              t.Get(i, "id"),
			Question:        q,
			Answer:          strings.TrimSpace(t.Get(i, "answer")),
			Type:            orDefault(t.Get(i, "type"), opts.DefaultType),
			Level:           orDefault(t.Get(i, "level"), opts.DefaultLevel),
			SupportingFacts: ParseSupportingFacts(t.Get(i, "supporting_facts")),
			Context:         docs,
		}
		if ex.ID == "" {
			ex.ID = strconv.Itoa(i)
		}
		out = append(out, ex)
	}
	log.Info("dataset: loaded qa rows", zap.Int("rows", len(out)), zap.Int("dropped", dropped))
	return out, nil
}

func orDefault(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case float64:
		return int(n), n == float64(int(n))
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func stringList(v any) []string {
	items := asSlice(v)
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = stringify(item)
	}
	return out
}
