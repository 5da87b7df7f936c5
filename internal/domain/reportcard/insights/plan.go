package insights

import (
	"fmt"
	"strings"
)

// Priority ranks a teacher recommendation
type Priority string

const (
	PriorityHigh   Priority = "ALTA"
	PriorityMedium Priority = "MÉDIA"
	PriorityLow    Priority = "BAIXA"
)

// InterventionKind is the family a proposed intervention belongs to
type InterventionKind string

const (
	InterventionRemedial     InterventionKind = "REMEDIAL"
	InterventionEnrichment   InterventionKind = "ENRIQUECIMENTO"
	InterventionAdaptation   InterventionKind = "ADAPTACAO"
	InterventionPeerTutoring InterventionKind = "MONITORIA"
)

const (
	strongPassRate   = 80.0
	tutoringPassRate = 70.0
	minimumPassRate  = 50.0
)

// Summary is the one-paragraph verdict on a class
type Summary struct {
	Situation string   `json:"situation"`
	Strengths []string `json:"strengths"`
	Concerns  []string `json:"concerns"`
}

// TeacherRecommendation lists actions for the teachers of one subject
type TeacherRecommendation struct {
	Subject  string   `json:"subject"`
	Actions  []string `json:"actions"`
	Priority Priority `json:"priority"`
}

// Intervention is a proposed pedagogical programme
type Intervention struct {
	Kind           InterventionKind `json:"kind"`
	Audience       string           `json:"audience"`
	Description    string           `json:"description"`
	ExpectedImpact string           `json:"expected_impact"`
}

// CurricularAdjustment suggests a change to the curriculum of an area
type CurricularAdjustment struct {
	Area       string `json:"area"`
	Adjustment string `json:"adjustment"`
	Rationale  string `json:"rationale"`
}

func teacherRecommendations(analyses []SubjectAnalysis) []TeacherRecommendation {
	out := make([]TeacherRecommendation, 0, len(analyses))
	for _, a := range analyses {
		var actions []string
		priority := PriorityMedium

		switch a.Level {
		case LevelCritical:
			priority = PriorityHigh
			actions = append(actions,
				"Revisar metodologia de ensino imediatamente",
				"Implementar atividades de recuperação paralela",
				"Avaliar se o conteúdo está adequado ao nível da turma",
				"Considerar uso de recursos audiovisuais e práticos",
			)
		case LevelAlert:
			actions = append(actions,
				"Monitorar de perto alunos com notas abaixo da média",
				"Reforçar conceitos fundamentais",
				"Aumentar frequência de avaliações formativas",
			)
		case LevelExcellent:
			priority = PriorityLow
			actions = append(actions,
				"Manter estratégias atuais de ensino",
				"Considerar atividades de enriquecimento para alunos avançados",
			)
		}

		if g := a.GenderGap; g != nil && g.Difference > genderGapThreshold {
			ahead := "feminino"
			if g.Male > g.Female {
				ahead = "masculino"
			}
			actions = append(actions,
				fmt.Sprintf("Atenção ao gap de gênero: desempenho %s é %.1f pontos maior", ahead, g.Difference),
				"Adotar estratégias inclusivas que engajem ambos os gêneros",
			)
		}

		if len(actions) > 0 {
			out = append(out, TeacherRecommendation{Subject: a.Subject, Actions: actions, Priority: priority})
		}
	}
	return out
}

func interventions(risks []RiskStudent, analyses []SubjectAnalysis, passRate float64, graded bool) []Intervention {
	out := make([]Intervention, 0)

	if n := countRisk(risks, RiskHigh); n > 0 {
		out = append(out, Intervention{
			Kind:           InterventionRemedial,
			Audience:       fmt.Sprintf("%d alunos em risco alto", n),
			Description:    "Implementar programa de recuperação intensiva com aulas extras e monitoria individualizada",
			ExpectedImpact: "Redução de 30-40% na taxa de reprovação deste grupo",
		})
	}

	for _, subject := range subjectsAt(analyses, LevelCritical) {
		out = append(out, Intervention{
			Kind:           InterventionAdaptation,
			Audience:       "Turma inteira - " + subject,
			Description:    fmt.Sprintf("Reestruturar abordagem pedagógica de %s com foco em metodologias ativas e aprendizagem significativa", subject),
			ExpectedImpact: "Aumento de 15-20 pontos na média da disciplina",
		})
	}

	if excellent := subjectsAt(analyses, LevelExcellent); len(excellent) > 0 {
		out = append(out, Intervention{
			Kind:           InterventionEnrichment,
			Audience:       "Alunos com desempenho acima da média",
			Description:    "Criar grupos de estudo avançados e projetos especiais nas disciplinas: " + strings.Join(excellent, ", "),
			ExpectedImpact: "Manter engajamento e desenvolver potencial máximo",
		})
	}

	if graded && passRate < tutoringPassRate {
		out = append(out, Intervention{
			Kind:           InterventionPeerTutoring,
			Audience:       "Alunos com dificuldades e monitores selecionados",
			Description:    "Implementar programa de monitoria entre pares, onde alunos com bom desempenho auxiliam colegas",
			ExpectedImpact: "Melhoria de 10-15% nas médias dos alunos monitorados",
		})
	}
	return out
}

func curricularAdjustments(analyses []SubjectAnalysis) []CurricularAdjustment {
	out := make([]CurricularAdjustment, 0)

	for _, a := range analyses {
		if a.Level != LevelCritical {
			continue
		}
		out = append(out, CurricularAdjustment{
			Area:       a.Subject,
			Adjustment: "Revisar carga horária e sequenciamento de conteúdos",
			Rationale:  fmt.Sprintf("Média de %.1f indica necessidade de ajuste metodológico", a.Average),
		})
	}

	struggling := func(a SubjectAnalysis) bool {
		return a.Level == LevelCritical || a.Level == LevelAlert
	}

	exactStruggling := 0
	for _, a := range analyses {
		if countIn([]string{a.Subject}, exactSubjects) > 0 && struggling(a) {
			exactStruggling++
		}
	}
	if exactStruggling >= 2 {
		out = append(out, CurricularAdjustment{
			Area:       "Ciências Exatas",
			Adjustment: "Integrar disciplinas exatas através de projetos interdisciplinares",
			Rationale:  "Múltiplas disciplinas com baixo desempenho indicam necessidade de abordagem integrada",
		})
	}

	// needs at least one math-dependent subject graded
	mathDependent, allStruggling := 0, true
	for _, a := range analyses {
		if countIn([]string{a.Subject}, mathSubjects) == 0 {
			continue
		}
		mathDependent++
		allStruggling = allStruggling && struggling(a)
	}
	if mathDependent > 0 && allStruggling {
		out = append(out, CurricularAdjustment{
			Area:       "Base Matemática",
			Adjustment: "Fortalecer fundamentos matemáticos desde o início do ano letivo",
			Rationale:  "Dificuldades generalizadas em disciplinas que dependem de matemática",
		})
	}
	return out
}

func summarize(analyses []SubjectAnalysis, risks []RiskStudent, passRate float64) Summary {
	s := Summary{Strengths: make([]string, 0), Concerns: make([]string, 0)}

	if excellent := subjectsAt(analyses, LevelExcellent); len(excellent) > 0 {
		s.Strengths = append(s.Strengths, "Desempenho excelente em: "+strings.Join(excellent, ", "))
	}
	if passRate >= strongPassRate {
		s.Strengths = append(s.Strengths, fmt.Sprintf("Alta taxa de aprovação (%.1f%%)", passRate))
	}

	critical := subjectsAt(analyses, LevelCritical)
	if len(critical) > 0 {
		s.Concerns = append(s.Concerns, "Disciplinas críticas: "+strings.Join(critical, ", "))
	}
	if n := countRisk(risks, RiskHigh); n > 0 {
		s.Concerns = append(s.Concerns, fmt.Sprintf("%d alunos em risco alto de reprovação", n))
	}
	if passRate < targetPassRate {
		s.Concerns = append(s.Concerns, fmt.Sprintf("Taxa de aprovação abaixo da meta (%.1f%%)", passRate))
	}

	switch {
	case passRate >= strongPassRate && len(critical) == 0:
		s.Situation = "Excelente - Turma com desempenho acima da média"
	case passRate >= targetPassRate && len(critical) <= 1:
		s.Situation = "Adequada - Turma com desempenho satisfatório, mas com pontos de melhoria"
	case passRate >= minimumPassRate:
		s.Situation = "Atenção - Turma necessita de intervenções pedagógicas"
	default:
		s.Situation = "Crítica - Turma requer ação imediata da coordenação pedagógica"
	}
	return s
}

func subjectsAt(analyses []SubjectAnalysis, level Level) []string {
	var out []string
	for _, a := range analyses {
		if a.Level == level {
			out = append(out, a.Subject)
		}
	}
	return out
}

func countRisk(risks []RiskStudent, level Risk) int {
	n := 0
	for _, r := range risks {
		if r.Risk == level {
			n++
		}
	}
	return n
}
