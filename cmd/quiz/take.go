package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stemsi/learning-portal/internal/assessment"
	"github.com/stemsi/learning-portal/internal/model"
)

const takeHelp = `Commands: n next, p previous, j <n> jump, a <text> answer, s submit, x exit, ? help`

// take runs an attempt in the terminal. The countdown keeps running while the
// student types; tier changes and the timeout are reported as they happen.
func (a *app) take(ctx context.Context, id int) error {
	at, err := a.assessments.StartAttempt(ctx, id)
	if err != nil {
		return err
	}
	defer a.assessments.DiscardAttempt(at.ID()) //nolint:errcheck

	views, unsubscribe := at.Subscribe()
	defer unsubscribe()
	go watchClock(ctx, views, at.View().Tier)

	fmt.Printf("%s: %d questions, %s on the clock.\n", at.Assessment().Title, at.View().Total, at.View().Clock)
	fmt.Println(takeHelp)

	for {
		v := at.View()
		switch v.State {
		case assessment.StateSubmitted:
			printResult(v.Result)
			return nil
		case assessment.StateExited:
			fmt.Println("Assessment abandoned. Nothing was submitted.")
			return nil
		case assessment.StateConfirmingSubmit:
			// Only reached after a failed submission.
			fmt.Println(v.SubmitError)
			if strings.EqualFold(a.prompt("Retry? [Y/n]: "), "n") {
				_ = at.CancelSubmit()
			} else {
				a.confirm(ctx, at)
			}
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		printQuestion(v)
		cmd, arg, _ := strings.Cut(a.prompt("> "), " ")
		if err := a.step(ctx, at, v, cmd, strings.TrimSpace(arg)); err != nil {
			fmt.Println(describeAttemptError(err))
		}
	}
}

func (a *app) step(ctx context.Context, at *assessment.Attempt, v assessment.View, cmd, arg string) error {
	switch cmd {
	case "":
		return nil
	case "n":
		return at.Next()
	case "p":
		return at.Prev()
	case "j":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("jump needs a question number")
		}
		return at.JumpTo(n - 1)
	case "a":
		return at.SetAnswer(answerValue(v.Question, arg))
	case "s":
		if err := at.OpenSubmit(); err != nil {
			return err
		}
		if w := at.SubmitWarning(); w != "" {
			fmt.Println(w)
		}
		if !strings.EqualFold(a.prompt("Submit now? [y/N]: "), "y") {
			return at.CancelSubmit()
		}
		a.confirm(ctx, at)
		return nil
	case "x":
		if err := at.RequestExit(); err != nil {
			return err
		}
		if !strings.EqualFold(a.prompt("Leave without submitting? Your answers will be lost. [y/N]: "), "y") {
			return at.CancelExit()
		}
		return at.ConfirmExit()
	case "?":
		fmt.Println(takeHelp)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// confirm submits the attempt. A failure leaves it confirming so the loop can
// offer a retry.
func (a *app) confirm(ctx context.Context, at *assessment.Attempt) {
	fmt.Println("Submitting...")
	if _, err := at.ConfirmSubmit(context.WithoutCancel(ctx)); err != nil {
		a.log.Debug().Err(err).Msg("Submission failed")
	}
}

// answerValue maps an option number to its text for multiple choice questions.
func answerValue(q *model.Question, arg string) string {
	if q == nil || q.Type != model.QuestionTypeMCQ {
		return arg
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(q.Options) {
		return q.Options[n-1]
	}
	return arg
}

func printQuestion(v assessment.View) {
	fmt.Println()
	strip := make([]string, len(v.Markers))
	for i, m := range v.Markers {
		switch m {
		case assessment.MarkerActive:
			strip[i] = fmt.Sprintf("[%d]", i+1)
		case assessment.MarkerAnswered:
			strip[i] = fmt.Sprintf(" %d*", i+1)
		default:
			strip[i] = fmt.Sprintf(" %d ", i+1)
		}
	}
	fmt.Printf("%s  (%s left)\n", strings.Join(strip, ""), v.Clock)
	if v.Question == nil {
		return
	}

	q := v.Question
	fmt.Printf("Question %d of %d (%d marks)\n%s\n", v.Index+1, v.Total, q.Marks, q.QuestionText)
	for i, opt := range q.Options {
		mark := " "
		if opt == v.Answer {
			mark = "x"
		}
		fmt.Printf("  [%s] %d) %s\n", mark, i+1, opt)
	}
	if q.Type != model.QuestionTypeMCQ && v.Answer != "" {
		fmt.Printf("Your answer: %s\n", v.Answer)
	}
}

// watchClock reports tier changes and the automatic submission.
func watchClock(ctx context.Context, views <-chan assessment.View, tier assessment.Tier) {
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-views:
			if !ok {
				return
			}
			if v.Tier != tier {
				tier = v.Tier
				fmt.Printf("\n%s left.\n> ", v.Clock)
			}
			if v.State == assessment.StateSubmitted && v.Remaining == 0 {
				fmt.Println("\nTime is up. Your answers were submitted. Press Enter to see the result.")
				return
			}
		}
	}
}

func printResult(r *model.SubmissionResult) {
	fmt.Println()
	if r == nil {
		fmt.Println("Assessment submitted.")
		return
	}
	verdict := "not passed"
	if r.Passed {
		verdict = "passed"
	}
	fmt.Printf("Attempt %d %s.\n", r.AttemptNumber, verdict)
	if c := r.CurrentAttempt; c != nil {
		fmt.Printf("Score: %.1f\n", c.Score)
		if c.Feedback != "" {
			fmt.Println(c.Feedback)
		}
	}
	if len(r.History) > 1 {
		fmt.Println("History:")
		for _, h := range r.History {
			fmt.Printf("  #%d %.1f\n", h.AttemptNumber, h.Score)
		}
	}
}

func describeAttemptError(err error) string {
	switch {
	case errors.Is(err, assessment.ErrQuestionIndex):
		return "No such question."
	case errors.Is(err, assessment.ErrInvalidTransition):
		return "Not possible right now."
	case errors.Is(err, assessment.ErrSubmitInFlight):
		return "Already submitting."
	}
	return describe(err)
}
