package service

import (
	"strings"

	"github.com/swifty-uz/taskbot/internal/domain"
)

// AssigneeResolver matches an analyzed assignee mention against the employee
// roster. Matching is deterministic: rules are tried in a fixed order and
// within a rule employees are scanned in roster order, first hit wins.
type AssigneeResolver struct{}

func NewAssigneeResolver() *AssigneeResolver {
	return &AssigneeResolver{}
}

// Resolve returns the first employee matching the mention, or nil when the
// mention is absent or nobody matches. Rule order:
//  1. exact email
//  2. exact full name
//  3. name substring, either direction
//  4. first token of the mentioned name against name tokens
//  5. search terms against name, email and position
func (r *AssigneeResolver) Resolve(mention domain.AssigneeMention, employees []domain.Employee) *domain.Employee {
	if !mention.Mentioned || len(employees) == 0 {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(mention.Email))
	name := strings.ToLower(strings.TrimSpace(mention.Name))

	if email != "" {
		for i := range employees {
			if strings.ToLower(employees[i].Email) == email {
				return &employees[i]
			}
		}
	}

	if name != "" {
		for i := range employees {
			if strings.ToLower(employees[i].Name) == name {
				return &employees[i]
			}
		}

		for i := range employees {
			empName := strings.ToLower(employees[i].Name)
			if strings.Contains(empName, name) || strings.Contains(name, empName) {
				return &employees[i]
			}
		}

		if first := firstToken(name); first != "" {
			for i := range employees {
				for _, token := range strings.Fields(strings.ToLower(employees[i].Name)) {
					if token == first {
						return &employees[i]
					}
				}
			}
		}
	}

	for _, term := range mention.SearchTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		for i := range employees {
			e := &employees[i]
			if strings.Contains(strings.ToLower(e.Name), term) ||
				strings.Contains(strings.ToLower(e.Email), term) ||
				strings.Contains(strings.ToLower(e.Position), term) {
				return e
			}
		}
	}

	return nil
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
