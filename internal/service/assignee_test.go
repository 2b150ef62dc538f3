package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swifty-uz/taskbot/internal/domain"
)

func roster() []domain.Employee {
	return []domain.Employee{
		{Name: "Иван Петров", Email: "ivan@swifty.uz", Position: "разработчик", PlankaUserID: "u1"},
		{Name: "Алексей Смирнов", Email: "alexey@swifty.uz", Position: "дизайнер", PlankaUserID: "u2"},
		{Name: "Мария Иванова", Email: "maria@swifty.uz", Position: "бухгалтер", PlankaUserID: "u3"},
	}
}

func TestResolveByEmail(t *testing.T) {
	r := NewAssigneeResolver()

	emp := r.Resolve(domain.AssigneeMention{Mentioned: true, Email: "MARIA@swifty.uz"}, roster())
	require.NotNil(t, emp)
	assert.Equal(t, "u3", emp.PlankaUserID)
}

func TestResolveEmailOutranksName(t *testing.T) {
	r := NewAssigneeResolver()

	// Name points at one employee, email at another; email wins.
	emp := r.Resolve(domain.AssigneeMention{
		Mentioned: true,
		Name:      "Иван Петров",
		Email:     "alexey@swifty.uz",
	}, roster())
	require.NotNil(t, emp)
	assert.Equal(t, "u2", emp.PlankaUserID)
}

func TestResolveByExactName(t *testing.T) {
	r := NewAssigneeResolver()

	emp := r.Resolve(domain.AssigneeMention{Mentioned: true, Name: "алексей смирнов"}, roster())
	require.NotNil(t, emp)
	assert.Equal(t, "u2", emp.PlankaUserID)
}

func TestResolveBySubstring(t *testing.T) {
	r := NewAssigneeResolver()

	emp := r.Resolve(domain.AssigneeMention{Mentioned: true, Name: "Смирнов"}, roster())
	require.NotNil(t, emp)
	assert.Equal(t, "u2", emp.PlankaUserID)
}

func TestResolveByFirstToken(t *testing.T) {
	r := NewAssigneeResolver()

	emp := r.Resolve(domain.AssigneeMention{Mentioned: true, Name: "Мария из бухгалтерии"}, roster())
	require.NotNil(t, emp)
	assert.Equal(t, "u3", emp.PlankaUserID)
}

func TestResolveBySearchTerms(t *testing.T) {
	r := NewAssigneeResolver()

	emp := r.Resolve(domain.AssigneeMention{
		Mentioned:   true,
		SearchTerms: []string{"дизайнер"},
	}, roster())
	require.NotNil(t, emp)
	assert.Equal(t, "u2", emp.PlankaUserID)
}

func TestResolveDeterministicFirstHit(t *testing.T) {
	r := NewAssigneeResolver()

	employees := []domain.Employee{
		{Name: "Иван Первый", PlankaUserID: "a"},
		{Name: "Иван Второй", PlankaUserID: "b"},
	}
	mention := domain.AssigneeMention{Mentioned: true, Name: "Иван"}

	for i := 0; i < 20; i++ {
		emp := r.Resolve(mention, employees)
		require.NotNil(t, emp)
		assert.Equal(t, "a", emp.PlankaUserID)
	}
}

func TestResolveNoMatch(t *testing.T) {
	r := NewAssigneeResolver()

	assert.Nil(t, r.Resolve(domain.AssigneeMention{Mentioned: true, Name: "Пётр"}, roster()))
	assert.Nil(t, r.Resolve(domain.AssigneeMention{Mentioned: false, Name: "Иван"}, roster()))
	assert.Nil(t, r.Resolve(domain.AssigneeMention{Mentioned: true, Name: "Иван"}, nil))
}
