package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"classboard/internal/app"
	"classboard/internal/auth"
	"classboard/internal/domain"
	"classboard/internal/infra/memory"
	"classboard/internal/infra/postgres"
	pgmigrations "classboard/internal/infra/postgres/migrations"
	infraredis "classboard/internal/infra/redis"
)

func TestQuizFlowAgainstPostgresAndRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := postgres.NewStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	keys := infraredis.NewAnswerKeyCache(redisClient, memory.NewStoreAnswerKeyLoader(store), 5*time.Minute)

	hub := app.NewMonitorHub()
	authSvc := auth.NewServiceWithClock(store, "it-secret", time.Hour, time.Now)
	catalog := app.NewCatalogService(store)
	enrollments := app.NewEnrollmentService(store)
	scoring := app.NewScoringService(store, keys, enrollments, hub)
	sessions := app.NewSessionService(store, scoring, enrollments, hub, 30*time.Minute)
	leaderboards := app.NewLeaderboardService(store)

	teacher, err := authSvc.SignUp(ctx, "reed@school.test", "hunter2hunter2", "Ms. Reed", "teacher")
	if err != nil {
		t.Fatalf("sign up teacher: %v", err)
	}
	student, err := authSvc.SignUp(ctx, "alice@school.test", "hunter2hunter2", "Alice", "student")
	if err != nil {
		t.Fatalf("sign up student: %v", err)
	}
	if _, err := authSvc.SignUp(ctx, "alice@school.test", "x-whatever-x", "Impostor", "student"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected unique email enforced by postgres, got %v", err)
	}

	subject, err := catalog.CreateSubject(ctx, teacher.ID, "Algebra", "")
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	quiz, err := catalog.CreateQuiz(ctx, teacher.ID, subject.ID, "Linear equations", "", []app.QuestionInput{
		{Text: "2x = 4, x?", Options: []string{"1", "2", "3"}, CorrectOption: 1, Points: 10},
		{Text: "x + 1 = 1, x?", Options: []string{"0", "1"}, CorrectOption: 0, Points: 5},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	for _, target := range []struct {
		kind domain.EnrollmentKind
		id   string
	}{{domain.EnrollSubject, subject.ID}, {domain.EnrollQuiz, quiz.ID}} {
		enrollment, err := enrollments.Request(ctx, target.kind, student.ID, target.id)
		if err != nil {
			t.Fatalf("request %s enrollment: %v", target.kind, err)
		}
		if _, err := enrollments.Decide(ctx, enrollment.ID, teacher.ID, true); err != nil {
			t.Fatalf("approve %s enrollment: %v", target.kind, err)
		}
	}

	session, err := sessions.Start(ctx, quiz.ID, teacher.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := sessions.Start(ctx, quiz.ID, teacher.ID); !errors.Is(err, domain.ErrSessionAlreadyActive) {
		t.Fatalf("expected partial unique index to reject second session, got %v", err)
	}

	if _, err := sessions.Begin(ctx, quiz.ID, student.ID); err != nil {
		t.Fatalf("begin participation: %v", err)
	}
	questions, err := catalog.Questions(ctx, quiz.ID)
	if err != nil || len(questions) != 2 {
		t.Fatalf("list questions: %v (%d)", err, len(questions))
	}
	if err := sessions.Heartbeat(ctx, quiz.ID, student.ID, map[string]int{questions[0].ID: 1}); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	submission, err := scoring.Submit(ctx, quiz.ID, student.ID, map[string]int{
		questions[0].ID: 1,
		questions[1].ID: 0,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submission.Score != 15 {
		t.Fatalf("expected score 15, got %d", submission.Score)
	}
	if _, err := scoring.Submit(ctx, quiz.ID, student.ID, nil); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected submission uniqueness enforced, got %v", err)
	}

	// The submit transaction updated points and cleared participation.
	profile, err := store.ProfileByID(ctx, student.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.TotalPoints != 15 {
		t.Fatalf("expected 15 cumulative points, got %d", profile.TotalPoints)
	}
	if _, err := store.ParticipationFor(ctx, quiz.ID, student.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected participation cleared, got %v", err)
	}

	entries, err := leaderboards.QuizLeaderboard(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "Alice" || entries[0].Score != 15 {
		t.Fatalf("unexpected leaderboard: %+v", entries)
	}

	// Answer key was cached in redis on first score.
	if got, err := redisClient.HGet(ctx, "quiz:"+quiz.ID+":answers", questions[0].ID).Result(); err != nil || got != "1" {
		t.Fatalf("expected cached answer key, got %q (%v)", got, err)
	}

	if _, err := sessions.Stop(ctx, session.ID, teacher.ID); err != nil {
		t.Fatalf("stop session: %v", err)
	}
	stats, err := store.TeacherStats(ctx, teacher.ID)
	if err != nil {
		t.Fatalf("teacher stats: %v", err)
	}
	if stats.Subjects != 1 || stats.Quizzes != 1 || stats.UniqueStudents != 1 {
		t.Fatalf("unexpected teacher stats: %+v", stats)
	}
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "classboard", "POSTGRES_PASSWORD": "classpass", "POSTGRES_DB": "classdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://classboard:classpass@%s:%s/classdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
