package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fitversal/onboardchat/internal/chat"
	"github.com/fitversal/onboardchat/internal/models"
	"github.com/fitversal/onboardchat/internal/onboarding"
	"github.com/fitversal/onboardchat/internal/services"
)

// wizard walks one profile through the onboarding steps on a terminal and
// then hands over to the coach chat.
type wizard struct {
	in      *bufio.Scanner
	out     io.Writer
	userID  string
	email   string
	restart bool

	profiles *services.ProfileService
	chats    *services.ChatService

	shown int
}

func (w *wizard) Run(ctx context.Context) error {
	profile, err := w.profiles.GetProfile(ctx, w.userID)
	if err != nil {
		return err
	}

	steps := []struct {
		done bool
		run  func(context.Context) error
	}{
		{profile.UserID != "", w.auth},
		{profile.CoachID != "", w.coachSelection},
		{profile.BirthDate != "" && profile.Gender != "", w.personalInfo},
		{len(profile.Days) > 0 && len(profile.Equipment) > 0, w.preferences},
	}
	for _, step := range steps {
		if step.done && !w.restart {
			continue
		}
		if err := step.run(ctx); err != nil {
			return err
		}
	}
	return w.chat(ctx)
}

func (w *wizard) auth(ctx context.Context) error {
	name, err := w.ask("Your name", "")
	if err != nil {
		return err
	}
	_, err = w.profiles.SubmitAuth(ctx, onboarding.Identity{UID: w.userID, Email: w.email, DisplayName: name})
	return err
}

func (w *wizard) coachSelection(ctx context.Context) error {
	coaches, err := w.profiles.RecommendedCoaches(ctx, w.userID)
	if err != nil {
		return err
	}
	fmt.Fprintln(w.out, "Choose your coach:")
	for i, coach := range coaches {
		fmt.Fprintf(w.out, "  %d) %s - %s\n", i+1, coach.Name, coach.Specialty)
	}

	return w.retryStep(func() error {
		answer, err := w.ask("Coach", "1")
		if err != nil {
			return err
		}
		coachID := answer
		if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(coaches) {
			coachID = coaches[n-1].ID
		}
		_, err = w.profiles.SubmitCoachSelection(ctx, w.userID, onboarding.CoachSelectionInput{CoachID: coachID})
		return err
	})
}

func (w *wizard) personalInfo(ctx context.Context) error {
	return w.retryStep(func() error {
		answers, err := w.askAll(
			[2]string{"Birth date (DD Mon YYYY)", ""},
			[2]string{"Gender (Male/Female/Other)", ""},
			[2]string{"Height", ""},
			[2]string{"Height unit (cm/ft inch)", "cm"},
			[2]string{"Weight", ""},
			[2]string{"Weight unit (kg/lbs)", "kg"},
		)
		if err != nil {
			return err
		}
		_, err = w.profiles.SubmitPersonalInfo(ctx, w.userID, onboarding.PersonalInfoInput{
			BirthDate:  answers[0],
			Gender:     answers[1],
			Height:     models.FlexString(answers[2]),
			HeightUnit: answers[3],
			Weight:     models.FlexString(answers[4]),
			WeightUnit: answers[5],
		})
		return err
	})
}

func (w *wizard) preferences(ctx context.Context) error {
	return w.retryStep(func() error {
		answers, err := w.askAll(
			[2]string{"Level (Beginner/Intermediate/Advanced)", "Beginner"},
			[2]string{"Equipment (comma separated)", "Bodyweight"},
			[2]string{"Training days (comma separated)", ""},
			[2]string{"Goal", ""},
		)
		if err != nil {
			return err
		}
		_, err = w.profiles.SubmitPreferences(ctx, w.userID, onboarding.PreferencesInput{
			Level:     answers[0],
			Equipment: models.ParseStringSet(answers[1]),
			Days:      models.ParseStringSet(answers[2]),
			Goal:      answers[3],
		})
		return err
	})
}

func (w *wizard) chat(ctx context.Context) error {
	fmt.Fprintln(w.out, "Chat with your coach. Commands: /retry, /skip, /quit")

	snapshot, err := w.chats.Open(ctx, w.userID)
	if done, err := w.report(snapshot, err); done || err != nil {
		return err
	}

	for {
		line, err := w.ask("You", "")
		if err != nil {
			return err
		}

		switch line {
		case "/quit":
			return nil
		case "/skip":
			snapshot, err = w.chats.Skip(ctx, w.userID)
		case "/retry":
			snapshot, err = w.retryLast(ctx)
		default:
			snapshot, err = w.chats.Send(ctx, w.userID, line)
		}
		if done, err := w.report(snapshot, err); done || err != nil {
			return err
		}
	}
}

func (w *wizard) retryLast(ctx context.Context) (chat.Snapshot, error) {
	snapshot, err := w.chats.Snapshot(ctx, w.userID)
	if err != nil || len(snapshot.FailedIndexes) == 0 {
		return snapshot, err
	}
	return w.chats.Retry(ctx, w.userID, snapshot.FailedIndexes[len(snapshot.FailedIndexes)-1])
}

// report prints assistant messages not shown yet and tells whether the
// conversation has moved on to program generation.
func (w *wizard) report(snapshot chat.Snapshot, err error) (bool, error) {
	for _, message := range snapshot.Messages[min(w.shown, len(snapshot.Messages)):] {
		if message.Role == models.RoleAssistant {
			fmt.Fprintf(w.out, "Coach: %s\n", message.Content)
		}
	}
	w.shown = len(snapshot.Messages)

	switch {
	case err == nil:
	case errors.Is(err, chat.ErrSendFailed):
		fmt.Fprintln(w.out, "Message failed to send. Type /retry to try again.")
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrNotRetryable):
	default:
		return false, err
	}

	if snapshot.NextRoute == onboarding.RouteProgramReady {
		fmt.Fprintln(w.out, "Your program is being generated.")
		return true, nil
	}
	return false, nil
}

// retryStep repeats fn until it passes validation.
func (w *wizard) retryStep(fn func() error) error {
	for {
		err := fn()
		var validation *onboarding.ValidationError
		if !errors.As(err, &validation) {
			return err
		}
		fmt.Fprintf(w.out, "  %s\n", validation.Message)
	}
}

func (w *wizard) askAll(questions ...[2]string) ([]string, error) {
	answers := make([]string, 0, len(questions))
	for _, q := range questions {
		answer, err := w.ask(q[0], q[1])
		if err != nil {
			return nil, err
		}
		answers = append(answers, answer)
	}
	return answers, nil
}

func (w *wizard) ask(prompt, fallback string) (string, error) {
	if fallback != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", prompt, fallback)
	} else {
		fmt.Fprintf(w.out, "%s: ", prompt)
	}
	if !w.in.Scan() {
		if err := w.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	answer := strings.TrimSpace(w.in.Text())
	if answer == "" {
		answer = fallback
	}
	return answer, nil
}
