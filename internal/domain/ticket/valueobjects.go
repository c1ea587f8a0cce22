package ticket

import "fmt"

type Category string

const (
	CategoryPayment   Category = "payment"
	CategoryAccess    Category = "access"
	CategoryTechnical Category = "technical"
	CategoryOther     Category = "other"
)

var validCategories = map[Category]bool{
	CategoryPayment:   true,
	CategoryAccess:    true,
	CategoryTechnical: true,
	CategoryOther:     true,
}

// Categories lists categories in the order the bot offers them.
func Categories() []Category {
	return []Category{CategoryPayment, CategoryAccess, CategoryTechnical, CategoryOther}
}

func (c Category) String() string {
	return string(c)
}

func (c Category) IsValid() bool {
	return validCategories[c]
}

func NewCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid category: %s", s)
	}
	return c, nil
}

// DefaultPriority derives triage priority from the category a member picked.
func (c Category) DefaultPriority() Priority {
	switch c {
	case CategoryPayment:
		return PriorityHigh
	case CategoryAccess:
		return PriorityHigh
	case CategoryTechnical:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// priorityRank orders triage: lower ranks first.
var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityNormal:   2,
	PriorityLow:      3,
}

func (p Priority) String() string {
	return string(p)
}

func (p Priority) IsValid() bool {
	_, ok := priorityRank[p]
	return ok
}

func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

func NewPriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid priority: %s", s)
	}
	return p, nil
}

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusClosed
}
