package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"exam-sync-service/internal/client"
	"exam-sync-service/internal/config"
	"exam-sync-service/internal/domain"
	"exam-sync-service/internal/infra/sqlite"
	"exam-sync-service/internal/session"

	"github.com/spf13/cobra"
)

// NewAttemptCmd builds the interactive attempt runner. It drives a full
// student attempt from the terminal: fetch the sanitized exam, answer
// question by question, submit.
func NewAttemptCmd(configPath *string) *cobra.Command {
	var (
		serverURL    string
		examCode     string
		fullName     string
		class        string
		absentNumber string
		progressPath string
	)

	cmd := &cobra.Command{
		Use:   "attempt",
		Short: "Run a student attempt against a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Flags win over config; config fills in whatever was left blank.
			if cfg, err := config.Load(*configPath); err == nil {
				if serverURL == "" {
					serverURL = cfg.Client.ServerURL
				}
				if progressPath == "" {
					progressPath = cfg.Client.ProgressPath
				}
			}
			if serverURL == "" {
				serverURL = "http://localhost:8080"
			}
			if progressPath == "" {
				progressPath = "attempt-progress.db"
			}
			if examCode == "" || fullName == "" || class == "" || absentNumber == "" {
				return fmt.Errorf("--code, --name, --class and --number are required")
			}

			gateway := client.New(serverURL)
			progress, err := sqlite.NewProgressStore(progressPath)
			if err != nil {
				return fmt.Errorf("open progress store: %w", err)
			}
			defer progress.Close()

			exam, err := gateway.FetchExam(ctx, examCode)
			if err != nil {
				return err
			}

			student := domain.Student{FullName: fullName, Class: class, AbsentNumber: absentNumber}

			// Carry the countdown forward on resume; the snapshot itself only
			// holds answers and log, so elapsed time is estimated from the
			// log timestamps.
			resume := 0
			if snap, ok, err := progress.Load(ctx, exam.Code, student.ID()); err != nil {
				return fmt.Errorf("load progress: %w", err)
			} else if ok {
				resume = estimateRemainingSeconds(snap, exam.Config.TimeLimitMinutes)
			}

			controller, err := session.New(ctx, session.Config{
				Exam:                   exam,
				Student:                student,
				Gateway:                gateway,
				Progress:               progress,
				ResumeRemainingSeconds: resume,
				OnTerminal: func(status domain.AttemptStatus, result domain.Result, err error) {
					if err != nil {
						fmt.Fprintf(os.Stderr, "\nattempt ended (%s) but submission failed: %v\n", status, err)
						return
					}
					fmt.Printf("\nattempt ended (%s): score %d/100, %d of %d correct\n",
						status, result.Score, result.CorrectAnswers, result.TotalQuestions)
				},
			})
			if err != nil {
				return err
			}
			if err := controller.Start(ctx); err != nil {
				return err
			}

			fmt.Printf("Exam %s, %d questions, %d minutes\n",
				exam.Code, len(exam.Questions), exam.Config.TimeLimitMinutes)

			reader := bufio.NewScanner(os.Stdin)
			for i, q := range exam.Questions {
				if q.Type == domain.Info {
					fmt.Printf("\n[%d] %s\n", i+1, q.Text)
					continue
				}
				printQuestion(i+1, q)
				if !reader.Scan() {
					break
				}
				answer := strings.TrimSpace(reader.Text())
				if answer == "" {
					continue
				}
				if err := controller.SetAnswer(q.ID, answer); err != nil {
					return err
				}
			}

			if controller.State() != session.StateActive {
				// Countdown expiry or lockout already finished the attempt.
				<-controller.Done()
				return nil
			}

			result, err := controller.Submit(ctx)
			if err != nil {
				return fmt.Errorf("submit attempt: %w", err)
			}
			fmt.Printf("\nsubmitted: score %d/100, %d of %d correct\n",
				result.Score, result.CorrectAnswers, result.TotalQuestions)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "server base URL")
	cmd.Flags().StringVar(&examCode, "code", "", "exam code")
	cmd.Flags().StringVar(&fullName, "name", "", "student full name")
	cmd.Flags().StringVar(&class, "class", "", "student class")
	cmd.Flags().StringVar(&absentNumber, "number", "", "student absent number")
	cmd.Flags().StringVar(&progressPath, "progress", "", "path to the local progress database")
	return cmd
}

// estimateRemainingSeconds derives the countdown carry-over for a resumed
// attempt from the first and last timestamped log lines. Zero means no usable
// estimate, so the attempt restarts with a full countdown.
func estimateRemainingSeconds(snap domain.ProgressSnapshot, limitMinutes int) int {
	var first, last time.Time
	for _, line := range snap.Logs {
		end := strings.IndexByte(line, ']')
		if !strings.HasPrefix(line, "[") || end < 0 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, line[1:end])
		if err != nil {
			continue
		}
		if first.IsZero() {
			first = ts
		}
		last = ts
	}
	if first.IsZero() || !last.After(first) {
		return 0
	}
	remaining := limitMinutes*60 - int(last.Sub(first).Seconds())
	if remaining <= 0 {
		// Already over the limit; one second lets the controller force-submit.
		return 1
	}
	return remaining
}

func printQuestion(num int, q domain.Question) {
	fmt.Printf("\n[%d] %s\n", num, q.Text)
	for _, opt := range q.Options {
		fmt.Printf("  - %s\n", opt)
	}
	for _, row := range q.Rows {
		fmt.Printf("  * %s (true/false)\n", row.Text)
	}
	for _, pair := range q.Pairs {
		fmt.Printf("  %s -> ?\n", pair.Left)
	}
	fmt.Print("> ")
}
