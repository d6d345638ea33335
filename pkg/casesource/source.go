// Package casesource supplies the base onboarding data the dashboard starts
// from: cases, aggregate metrics and seeded notifications.
package casesource

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/models"
)

// Source returns a fresh snapshot on every call.
type Source interface {
	GenerateCases() []models.OnboardingCase
	Metrics() models.DashboardMetrics
	StageDistribution() models.StageDistribution
	DepartmentMetrics() []models.DepartmentMetrics
	GenerateNotifications() []models.Notification
	AgentActivity(caseID string) []models.AgentActivity
}

const (
	DefaultSeed  = 42
	DefaultCount = 100
)

var (
	firstNames = []string{
		"Priya", "Sam", "Casey", "Taylor", "Riley", "Morgan", "Avery", "Jamie",
		"Drew", "Quinn", "Rowan", "Skyler", "Harper", "Reese", "Emerson", "Kai",
	}
	lastNames = []string{
		"Shah", "Patel", "Nguyen", "Garcia", "Kim", "Okafor", "Schmidt", "Rossi",
		"Tanaka", "Silva", "Kowalski", "Haddad", "Murphy", "Fischer", "Lopez", "Chen",
	}
	roles = map[models.Department][]string{
		models.DepartmentEngineering:     {"Software Engineer", "Senior Software Engineer", "SRE"},
		models.DepartmentSales:           {"Account Executive", "Sales Development Rep"},
		models.DepartmentMarketing:       {"Content Strategist", "Growth Marketer"},
		models.DepartmentFinance:         {"Financial Analyst", "Accountant"},
		models.DepartmentHR:              {"HR Business Partner", "Recruiter"},
		models.DepartmentOperations:      {"Operations Analyst", "Program Manager"},
		models.DepartmentProduct:         {"Product Manager", "Product Designer"},
		models.DepartmentCustomerSuccess: {"Customer Success Manager", "Support Engineer"},
	}
	dueNext = map[models.Stage][]string{
		models.StagePreboarding: {"Document verification", "Offer letter signature", "Background check"},
		models.StageDay1:        {"Laptop handover", "Badge pickup", "Welcome session"},
		models.StageWeek1:       {"Equipment setup", "Team introductions", "Compliance training"},
		models.StageDay30:       {"30-day check-in", "Benefits enrollment"},
		models.StageDay90:       {"90-day review", "Probation sign-off"},
	}
	agents = []string{"Document Agent", "Compliance Agent", "IT Provisioning Agent", "Scheduling Agent"}
)

// Generator produces the same pseudo-random data set for the same seed.
type Generator struct {
	seed  uint64
	count int
	now   func() time.Time
}

type Option func(*Generator)

func WithSeed(seed uint64) Option {
	return func(g *Generator) { g.seed = seed }
}

func WithCount(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.count = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{seed: DefaultSeed, count: DefaultCount, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *Generator) rng(stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(g.seed, stream))
}

func (g *Generator) today() time.Time {
	now := g.now()
	y, m, d := now.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// GenerateCases returns count cases. The first two are the candidates tracked
// under workflow control.
func (g *Generator) GenerateCases() []models.OnboardingCase {
	r := g.rng(1)
	today := g.today()

	cases := make([]models.OnboardingCase, 0, g.count)
	cases = append(cases,
		models.OnboardingCase{
			ID:              "alex-morgan-001",
			EmployeeID:      "EMP-1001",
			EmployeeName:    "Alex Morgan",
			Department:      models.DepartmentEngineering,
			Role:            "Software Engineer",
			Stage:           models.StagePreboarding,
			Status:          models.StatusToBeInitiated,
			DueNext:         "Candidate chat",
			DueDate:         today,
			Manager:         "Dana Whitfield",
			CreatedDate:     today.AddDate(0, 0, -1),
			ProgressPercent: 0,
		},
		models.OnboardingCase{
			ID:              "jordan-lee-002",
			EmployeeID:      "EMP-1002",
			EmployeeName:    "Jordan Lee",
			Department:      models.DepartmentSales,
			Role:            "Account Executive",
			Stage:           models.StagePreboarding,
			Status:          models.StatusPending,
			DueNext:         "Upload BGC documents (today)",
			DueDate:         today,
			Manager:         "Chris Ortega",
			CreatedDate:     today.AddDate(0, 0, -3),
			ProgressPercent: 5,
		},
	)

	for i := len(cases); i < g.count; i++ {
		department := models.Departments[r.IntN(len(models.Departments))]
		stage := models.Stages[r.IntN(len(models.Stages))]
		status := pickStatus(r, stage)
		deptRoles := roles[department]
		steps := dueNext[stage]

		cases = append(cases, models.OnboardingCase{
			ID:              fmt.Sprintf("case-%03d", i+1),
			EmployeeID:      fmt.Sprintf("EMP-%04d", 1001+i),
			EmployeeName:    firstNames[r.IntN(len(firstNames))] + " " + lastNames[r.IntN(len(lastNames))],
			Department:      department,
			Role:            deptRoles[r.IntN(len(deptRoles))],
			Stage:           stage,
			Status:          status,
			ProgressPercent: progressFor(r, stage, status),
			DueNext:         steps[r.IntN(len(steps))],
			DueDate:         today.AddDate(0, 0, r.IntN(15)-4),
			ExceptionCount:  exceptionsFor(r, status),
			Manager:         firstNames[r.IntN(len(firstNames))] + " " + lastNames[r.IntN(len(lastNames))],
			CreatedDate:     today.AddDate(0, 0, -r.IntN(90)-1),
		})
	}

	return cases
}

func pickStatus(r *rand.Rand, stage models.Stage) models.CaseStatus {
	if stage == models.StageDay90 && r.IntN(2) == 0 {
		return models.StatusCompleted
	}

	switch n := r.IntN(10); {
	case n < 5:
		return models.StatusInProgress
	case n < 7:
		return models.StatusPending
	case n < 8:
		return models.StatusBlocked
	default:
		return models.StatusAtRisk
	}
}

func progressFor(r *rand.Rand, stage models.Stage, status models.CaseStatus) int {
	if status == models.StatusCompleted {
		return 100
	}

	base := map[models.Stage]int{
		models.StagePreboarding: 5,
		models.StageDay1:        20,
		models.StageWeek1:       35,
		models.StageDay30:       55,
		models.StageDay90:       75,
	}[stage]

	return base + r.IntN(20)
}

func exceptionsFor(r *rand.Rand, status models.CaseStatus) int {
	switch status {
	case models.StatusBlocked, models.StatusAtRisk:
		return 1 + r.IntN(3)
	default:
		return 0
	}
}

// Metrics summarises the generated cases.
func (g *Generator) Metrics() models.DashboardMetrics {
	m := models.DashboardMetrics{
		AvgTimeToOnboardDays: 12.5,
		AvgSatisfaction:      4.6,
		AvgBGCDays:           3.2,
	}

	for _, c := range g.GenerateCases() {
		switch c.Status {
		case models.StatusCompleted:
			m.Completed++
		case models.StatusToBeInitiated:
			m.NotStarted++
		default:
			m.ActiveJourneys++
		}

		if c.Status == models.StatusCompleted {
			continue
		}

		switch c.Stage {
		case models.StagePreboarding:
			m.UpcomingJoiners++

			if c.Status == models.StatusPending {
				m.BGVPending++
			}

			if c.ExceptionCount > 0 {
				m.PendingDocuments++
			}
		case models.StageDay1:
			m.PendingIDCreation++
		}
	}

	return m
}

// StageDistribution counts cases per stage, with the pending background
// checks split out into their own bucket.
func (g *Generator) StageDistribution() models.StageDistribution {
	dist := make(models.StageDistribution, 0, len(models.Stages)+1)
	for _, stage := range models.Stages {
		dist = append(dist, models.StageCount{Stage: stage})
	}

	dist = append(dist, models.StageCount{Stage: models.StageBGCPending})

	for _, c := range g.GenerateCases() {
		stage := c.Stage
		if stage == models.StagePreboarding && c.Status == models.StatusPending {
			stage = models.StageBGCPending
		}

		dist = dist.Increment(stage, 1)
	}

	return dist
}

// DepartmentMetrics summarises the generated cases per department.
func (g *Generator) DepartmentMetrics() []models.DepartmentMetrics {
	type acc struct {
		models.DepartmentMetrics
		progress int
		cases    int
	}

	byDept := make(map[models.Department]*acc, len(models.Departments))
	for _, d := range models.Departments {
		byDept[d] = &acc{DepartmentMetrics: models.DepartmentMetrics{Department: d}}
	}

	for _, c := range g.GenerateCases() {
		a := byDept[c.Department]
		a.cases++
		a.progress += c.ProgressPercent
		a.ExceptionsTotal += c.ExceptionCount

		if c.Status == models.StatusCompleted {
			a.CompletedCases++
		} else {
			a.ActiveCases++
		}
	}

	out := make([]models.DepartmentMetrics, 0, len(models.Departments))

	for _, d := range models.Departments {
		a := byDept[d]
		if a.cases > 0 {
			a.AvgProgress = float64(a.progress) / float64(a.cases)
		}

		out = append(out, a.DepartmentMetrics)
	}

	return out
}

// GenerateNotifications returns the seeded notifications, newest first.
func (g *Generator) GenerateNotifications() []models.Notification {
	now := g.now()

	return []models.Notification{
		{
			ID: "seed-1", Kind: "case.exception", Title: "Document verification failed",
			Message: "Passport scan for Casey Kim is unreadable", Timestamp: now.Add(-15 * time.Minute),
			SubjectName: "Casey Kim", Severity: models.SeverityWarning,
		},
		{
			ID: "seed-2", Kind: "journey.started", Title: "New joiner confirmed",
			Message: "Riley Nguyen accepted the offer", Timestamp: now.Add(-1 * time.Hour),
			SubjectName: "Riley Nguyen", Severity: models.SeveritySuccess,
		},
		{
			ID: "seed-3", Kind: "agent.action", Title: "Laptop shipped",
			Message: "IT Provisioning Agent shipped equipment for Sam Patel", Timestamp: now.Add(-3 * time.Hour),
			SubjectName: "Sam Patel", Severity: models.SeverityInfo, Read: true,
		},
		{
			ID: "seed-4", Kind: "case.exception", Title: "Background check delayed",
			Message: "Vendor SLA breached for Quinn Rossi", Timestamp: now.Add(-26 * time.Hour),
			SubjectName: "Quinn Rossi", Severity: models.SeverityCritical,
		},
	}
}

// AgentActivity returns the recent agent actions for one case, newest first.
func (g *Generator) AgentActivity(caseID string) []models.AgentActivity {
	r := g.rng(hash(caseID))
	now := g.now()

	n := 2 + r.IntN(3)
	out := make([]models.AgentActivity, 0, n)
	at := now

	for i := range n {
		at = at.Add(-time.Duration(5+r.IntN(120)) * time.Minute)
		out = append(out, models.AgentActivity{
			ID:        fmt.Sprintf("%s-activity-%d", caseID, i+1),
			CaseID:    caseID,
			Agent:     agents[r.IntN(len(agents))],
			Action:    activityActions[r.IntN(len(activityActions))],
			Timestamp: at,
			Success:   r.IntN(10) > 0,
		})
	}

	return out
}

var activityActions = []string{
	"Requested missing documents",
	"Verified identity documents",
	"Scheduled orientation",
	"Provisioned accounts",
	"Sent welcome pack",
}

func hash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))

	return h.Sum64()
}
