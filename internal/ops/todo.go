package ops

import (
	"context"

	"github.com/hpungsan/flowdeck/internal/auth"
	"github.com/hpungsan/flowdeck/internal/collection"
	"github.com/hpungsan/flowdeck/internal/errors"
	"github.com/hpungsan/flowdeck/internal/projection"
	"github.com/hpungsan/flowdeck/internal/record"
)

// TodoListInput contains parameters for the TodoList operation.
type TodoListInput struct {
	Token  string
	DocID  string // optional, defaults to the configured doc id
	Mode   string // optional, defaults to "unclassified"
	Cursor int    // default: 0
	Limit  int    // default: 1, max: 100
}

// TodoItem is one projected todo as surfaced to callers.
type TodoItem struct {
	Index             int    `json:"index"`
	ID                string `json:"id"`
	Content           string `json:"content"`
	NormalizedContent string `json:"normalizedContent"`
	Timestamp         int64  `json:"timestamp"`
	CreatedAt         int64  `json:"createdAt"`
	AIAssistClass     string `json:"aiAssistClass"`
	Category          string `json:"category"`
	Stage             string `json:"stage"`
	Completed         bool   `json:"completed"`
}

// TodoListOutput contains the result of the TodoList operation.
type TodoListOutput struct {
	Success      bool       `json:"success"`
	UserID       string     `json:"userId"`
	DocID        string     `json:"docId"`
	Mode         string     `json:"mode"`
	Cursor       int        `json:"cursor"`
	Limit        int        `json:"limit"`
	Total        int        `json:"total"`
	HasMore      bool       `json:"hasMore"`
	NextCursor   *int       `json:"nextCursor"`
	Items        []TodoItem `json:"items"`
	Item         *TodoItem  `json:"item"`
	NumberedText string     `json:"numberedText"`
}

// TodoList answers the read-only outstanding-todos query: authenticate,
// load the caller's sync state, materialize it into a throwaway collection,
// then filter, paginate, and render. An absent sync document yields an
// empty successful result rather than an error.
func TodoList(ctx context.Context, deps Deps, input TodoListInput) (*TodoListOutput, error) {
	uid, err := auth.Subject(input.Token)
	if err != nil {
		return nil, err
	}

	docID, err := deps.docID(input.DocID)
	if err != nil {
		return nil, err
	}

	mode := input.Mode
	if mode == "" {
		mode = projection.DefaultMode
	}
	if !projection.ValidMode(mode) {
		return nil, errors.NewInvalidMode(projection.AllowedModes)
	}

	cursor := max(input.Cursor, 0)
	limit := input.Limit
	if limit < 1 {
		limit = projection.DefaultLimit
	}
	if limit > projection.MaxLimit {
		limit = projection.MaxLimit
	}

	out := &TodoListOutput{
		Success: true,
		UserID:  uid,
		DocID:   docID,
		Mode:    mode,
		Cursor:  cursor,
		Limit:   limit,
		Items:   []TodoItem{},
	}

	blob, err := deps.Chunks.LoadState(ctx, input.Token, uid, docID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return out, nil
		}
		return nil, err
	}

	coll, err := collection.Load(blob, collection.DefaultName)
	if err != nil {
		return nil, err
	}
	records, err := coll.Records()
	if err != nil {
		return nil, err
	}

	todos, err := projection.ExtractTodos(records, mode)
	if err != nil {
		return nil, err
	}

	page := projection.Paginate(todos, cursor, limit)
	out.Total = page.Total
	out.HasMore = page.HasMore
	out.NextCursor = page.NextCursor
	for _, it := range page.Items {
		out.Items = append(out.Items, toTodoItem(it))
	}
	if len(out.Items) > 0 {
		out.Item = &out.Items[0]
	}
	out.NumberedText = projection.NumberedText(page)

	return out, nil
}

func toTodoItem(it projection.Item) TodoItem {
	return TodoItem{
		Index:             it.Index,
		ID:                it.Record.ID,
		Content:           it.Record.Content,
		NormalizedContent: record.NormalizeContent(it.Record.Content),
		Timestamp:         it.Record.Timestamp,
		CreatedAt:         it.Record.CreatedAt,
		AIAssistClass:     it.Record.AIAssistClass,
		Category:          it.Record.Category,
		Stage:             it.Record.Stage,
		Completed:         it.Record.Completed,
	}
}
