// Package state implements the board state machine for taskman: which column
// moves are allowed and how a drag gesture re-sequences the affected columns.
package state

import (
	"fmt"

	werrors "github.com/diogenes-ai-code/taskman/internal/errors"
	"github.com/diogenes-ai-code/taskman/internal/models"
)

// TransitionType describes the kind of gesture moving a ticket.
type TransitionType string

const (
	TransitionTypeAdvance TransitionType = "advance" // "next" button
	TransitionTypeRetreat TransitionType = "retreat" // "prev" button
	TransitionTypeDrag    TransitionType = "drag"    // drag and drop, any column
)

// TransitionRule defines a valid column move and the gestures that may perform it.
type TransitionRule struct {
	From         models.Status
	To           models.Status
	AllowedTypes []TransitionType
	Description  string
}

// validTransitions defines every allowed move between two different columns.
// Reordering inside one column is always allowed and needs no rule.
var validTransitions = []TransitionRule{
	{
		From:         models.StatusTodo,
		To:           models.StatusDoing,
		AllowedTypes: []TransitionType{TransitionTypeAdvance, TransitionTypeDrag},
		Description:  "Work started",
	},
	{
		From:         models.StatusDoing,
		To:           models.StatusDone,
		AllowedTypes: []TransitionType{TransitionTypeAdvance, TransitionTypeDrag},
		Description:  "Work finished",
	},
	{
		From:         models.StatusDoing,
		To:           models.StatusTodo,
		AllowedTypes: []TransitionType{TransitionTypeRetreat, TransitionTypeDrag},
		Description:  "Work put back",
	},
	{
		From:         models.StatusDone,
		To:           models.StatusDoing,
		AllowedTypes: []TransitionType{TransitionTypeRetreat, TransitionTypeDrag},
		Description:  "Ticket reopened",
	},
	{
		From:         models.StatusTodo,
		To:           models.StatusDone,
		AllowedTypes: []TransitionType{TransitionTypeDrag},
		Description:  "Dropped straight into Done",
	},
	{
		From:         models.StatusDone,
		To:           models.StatusTodo,
		AllowedTypes: []TransitionType{TransitionTypeDrag},
		Description:  "Dropped back into Todo",
	},
}

// transitionRuleMap provides fast lookup of transition rules.
var transitionRuleMap map[string]*TransitionRule

func init() {
	transitionRuleMap = make(map[string]*TransitionRule)
	for i := range validTransitions {
		rule := &validTransitions[i]
		transitionRuleMap[makeTransitionKey(rule.From, rule.To)] = rule
	}
}

func makeTransitionKey(from, to models.Status) string {
	return string(from) + "->" + string(to)
}

// Machine provides state machine operations for board columns.
type Machine struct{}

// NewMachine creates a new state machine instance.
func NewMachine() *Machine {
	return &Machine{}
}

// GetTransitionRule returns the rule for a move, or nil if invalid.
func (m *Machine) GetTransitionRule(from, to models.Status) *TransitionRule {
	return transitionRuleMap[makeTransitionKey(from, to)]
}

// CanTransition checks whether a gesture may move a ticket from one column to another.
func (m *Machine) CanTransition(from, to models.Status, transType TransitionType) error {
	if !from.IsValid() {
		return fmt.Errorf("invalid status: %s", from)
	}
	if !to.IsValid() {
		return fmt.Errorf("invalid status: %s", to)
	}

	if from == to {
		if transType == TransitionTypeDrag {
			return nil
		}
		return fmt.Errorf("ticket is already in %s", to)
	}

	rule := m.GetTransitionRule(from, to)
	if rule == nil {
		return fmt.Errorf("transition from %s to %s is not allowed", from, to)
	}
	for _, allowed := range rule.AllowedTypes {
		if allowed == transType {
			return nil
		}
	}
	return fmt.Errorf("transition type %s is not allowed for %s -> %s", transType, from, to)
}

// GetValidTransitions returns all valid moves out of the given column.
func (m *Machine) GetValidTransitions(from models.Status) []TransitionRule {
	var transitions []TransitionRule
	for _, rule := range validTransitions {
		if rule.From == from {
			transitions = append(transitions, rule)
		}
	}
	return transitions
}

// Next returns the column to the right of s. Done stays Done.
func Next(s models.Status) models.Status {
	i := s.Index()
	if i < 0 || i == len(models.Statuses)-1 {
		return s
	}
	return models.Statuses[i+1]
}

// Prev returns the column to the left of s. Todo stays Todo.
func Prev(s models.Status) models.Status {
	i := s.Index()
	if i <= 0 {
		return s
	}
	return models.Statuses[i-1]
}

// PlanDrag computes the column orders produced by dropping ticket id at
// position index of the target column. The index is clamped to the column.
// The destination order comes first; the source order follows when the
// ticket changed columns. The board is not modified.
func PlanDrag(board models.Board, id int64, target models.Status, index int) ([]models.ColumnOrder, error) {
	if !target.IsValid() {
		return nil, werrors.Validation("invalid status: %s", target)
	}

	ticket, _, ok := board.Find(id)
	if !ok {
		return nil, werrors.NotFound("ticket %d not found", id)
	}
	source := ticket.Status

	if err := NewMachine().CanTransition(source, target, TransitionTypeDrag); err != nil {
		return nil, werrors.Validation("%v", err)
	}

	dest := idsWithout(board[target], id)
	if index < 0 {
		index = 0
	}
	if index > len(dest) {
		index = len(dest)
	}
	dest = append(dest[:index], append([]int64{id}, dest[index:]...)...)

	orders := []models.ColumnOrder{{Status: target, IDs: dest}}
	if source != target {
		orders = append(orders, models.ColumnOrder{Status: source, IDs: idsWithout(board[source], id)})
	}
	return orders, nil
}

func idsWithout(column []*models.Ticket, id int64) []int64 {
	ids := make([]int64, 0, len(column))
	for _, t := range column {
		if t.ID != id {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
