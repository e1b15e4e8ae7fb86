package fakeapi

import (
	"github.com/shopspring/decimal"

	"github.com/jrsteele09/go-budget-client/categories"
	"github.com/jrsteele09/go-budget-client/chatbot"
	"github.com/jrsteele09/go-budget-client/templates"
)

// KnowledgeArticles is the fixed knowledge base every fake server starts with.
var KnowledgeArticles = []chatbot.Knowledge{
	{
		Title:    "The 50/30/20 rule",
		Content:  "Spend 50% of income on needs, 30% on wants and save 20%.",
		Category: "budgeting",
		Tags:     []string{"budget", "rule", "savings"},
	},
	{
		Title:    "Tracking expenses",
		Content:  "Record every expense with a category so monthly stats stay accurate.",
		Category: "expenses",
		Tags:     []string{"expense", "tracking"},
	},
	{
		Title:    "Emergency fund",
		Content:  "Keep three to six months of essential spending in an easy-access account.",
		Category: "savings",
		Tags:     []string{"savings", "emergency"},
	},
}

func (s *Server) seedKnowledge() {
	now := s.now().UTC()
	for _, k := range KnowledgeArticles {
		k.Tags = append([]string(nil), k.Tags...)
		k.CreatedAt, k.UpdatedAt = now, now
		s.knowledge.insert(k, setKnowledgeID)
	}
}

// WithDemoData seeds a few categories, a group and two public templates so
// a freshly started server has something to browse.
func WithDemoData() Option {
	return func(s *Server) {
		now := s.now().UTC()
		desc := "Day-to-day living costs"
		group := s.groups.insert(categories.Group{Name: "Essentials", Description: &desc, Color: "#2e7d32", CreatedAt: now, UpdatedAt: now}, setGroupID)
		for _, c := range []categories.Category{
			{Name: "Housing", Type: "need", Color: "#1565c0", BudgetPercentage: 30},
			{Name: "Groceries", Type: "need", Color: "#2e7d32", BudgetPercentage: 15},
			{Name: "Dining out", Type: "want", Color: "#ef6c00", BudgetPercentage: 10},
			{Name: "Savings", Type: "savings", Color: "#6a1b9a", BudgetPercentage: 20},
		} {
			if c.Type == "need" {
				c.Group = &group.ID
			}
			c.CreatedAt, c.UpdatedAt = now, now
			s.categories.insert(c, setCategoryID)
		}
		for _, t := range []templates.Template{
			{Name: "Student budget", Description: "Lean monthly plan for students", TemplateType: "personal", Period: "monthly", TotalAmount: decimal.NewFromInt(1200)},
			{Name: "Family budget", Description: "Monthly plan for a family of four", TemplateType: "family", Period: "monthly", TotalAmount: decimal.NewFromInt(5200)},
		} {
			t.CreatedAt, t.UpdatedAt = now, now
			s.templates.insert(t, setTemplateID)
		}
	}
}
