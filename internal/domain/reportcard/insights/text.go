package insights

import (
	"fmt"
	"strings"
)

// maxListedRisks caps the students printed in the risk section
const maxListedRisks = 10

// FormatText renders a report as a Markdown document headed by title
func FormatText(r Report, title string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Relatório de Insights Pedagógicos - %s\n\n", title)

	b.WriteString("## Resumo Geral\n\n")
	fmt.Fprintf(&b, "**Situação da Turma:** %s\n\n", r.Summary.Situation)
	writeBullets(&b, "### Pontos Fortes", r.Summary.Strengths)
	writeBullets(&b, "### Pontos de Atenção", r.Summary.Concerns)

	b.WriteString("## Análise por Disciplina\n\n")
	for _, s := range r.Subjects {
		fmt.Fprintf(&b, "### %s\n", s.Subject)
		fmt.Fprintf(&b, "- **Média:** %.1f\n", s.Average)
		fmt.Fprintf(&b, "- **Nível:** %s\n", s.Level)
		fmt.Fprintf(&b, "- **Alunos abaixo da média:** %d\n", s.BelowAverage)
		fmt.Fprintf(&b, "- **Alunos acima da média:** %d\n", s.AtOrAbove)
		if g := s.GenderGap; g != nil {
			fmt.Fprintf(&b, "- **Gap de gênero:** Masculino %.1f | Feminino %.1f (diferença: %.1f)\n", g.Male, g.Female, g.Difference)
		}
		b.WriteString("\n")
	}

	if len(r.RiskStudents) > 0 {
		fmt.Fprintf(&b, "## Alunos em Risco (%d)\n\n", len(r.RiskStudents))
		for i, s := range r.RiskStudents {
			if i == maxListedRisks {
				fmt.Fprintf(&b, "*... e mais %d alunos*\n\n", len(r.RiskStudents)-maxListedRisks)
				break
			}
			subjects := "Nenhuma"
			if len(s.SubjectsAtRisk) > 0 {
				subjects = strings.Join(s.SubjectsAtRisk, ", ")
			}
			fmt.Fprintf(&b, "### %s (%s)\n", s.Name, s.Risk)
			fmt.Fprintf(&b, "- **Turma:** %s\n", s.ClassName)
			fmt.Fprintf(&b, "- **Média Geral:** %.1f\n", s.Average)
			fmt.Fprintf(&b, "- **Disciplinas em risco:** %s\n", subjects)
			b.WriteString("- **Recomendações:**\n")
			for _, rec := range s.Recommendations {
				fmt.Fprintf(&b, "  - %s\n", rec)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("## Padrões Comportamentais\n\n")
	if r.Patterns.GenderGap {
		b.WriteString("- **Gap de gênero identificado:** Existem diferenças significativas de desempenho entre gêneros em algumas disciplinas\n")
	}
	if len(r.Patterns.Correlations) > 0 {
		b.WriteString("- **Correlações identificadas:**\n")
		for _, c := range r.Patterns.Correlations {
			fmt.Fprintf(&b, "  - %s ↔ %s (correlação: %.2f)\n", c.SubjectA, c.SubjectB, c.Coefficient)
		}
	}
	if len(r.Patterns.Findings) > 0 {
		b.WriteString("- **Padrões de desempenho:**\n")
		for _, f := range r.Patterns.Findings {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Recomendações para Docentes\n\n")
	for _, rec := range r.TeacherRecommendations {
		fmt.Fprintf(&b, "### %s (Prioridade: %s)\n", rec.Subject, rec.Priority)
		for _, a := range rec.Actions {
			fmt.Fprintf(&b, "- %s\n", a)
		}
		b.WriteString("\n")
	}

	if len(r.Interventions) > 0 {
		b.WriteString("## Intervenções Pedagógicas Sugeridas\n\n")
		for _, in := range r.Interventions {
			fmt.Fprintf(&b, "### %s\n", in.Kind)
			fmt.Fprintf(&b, "- **Público-alvo:** %s\n", in.Audience)
			fmt.Fprintf(&b, "- **Descrição:** %s\n", in.Description)
			fmt.Fprintf(&b, "- **Impacto esperado:** %s\n\n", in.ExpectedImpact)
		}
	}

	if len(r.CurricularAdjustments) > 0 {
		b.WriteString("## Ajustes Curriculares Sugeridos\n\n")
		for _, a := range r.CurricularAdjustments {
			fmt.Fprintf(&b, "### %s\n", a.Area)
			fmt.Fprintf(&b, "- **Ajuste:** %s\n", a.Adjustment)
			fmt.Fprintf(&b, "- **Justificativa:** %s\n\n", a.Rationale)
		}
	}

	return b.String()
}

func writeBullets(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(heading + "\n")
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
