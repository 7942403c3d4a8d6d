package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/welldanyogia/portfolio-contact/internal/form"
	"github.com/welldanyogia/portfolio-contact/internal/rules"
)

var rootCmd = &cobra.Command{
	Use:   "contactctl",
	Short: "Drive the portfolio contact endpoint from a terminal",
	Long: `contactctl submits the portfolio contact form and checks the service
configuration. It validates fields with the same rules as the server before
anything is sent.`,
	SilenceUsage: true,
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit the contact form",
	Long: `Submit the contact form.

Example:
  contactctl submit --name "Jane Doe" --email jane@acme.io \
    --subject "Booking system" --message "Hi, can we talk about our booking flow?"`,
	RunE: runSubmit,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which external settings the service has configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag(cmd))
		defer cancel()

		status, err := form.NewClient(serverFlag(cmd), timeoutFlag(cmd)).Status(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	},
}

// flagFields maps command line flags to form fields
var flagFields = map[string]string{
	"name":           rules.FieldName,
	"email":          rules.FieldEmail,
	"subject":        rules.FieldSubject,
	"category":       rules.FieldCategory,
	"message":        rules.FieldMessage,
	"phone":          rules.FieldPhone,
	"contact-method": rules.FieldContactMethod,
	"budget":         rules.FieldBudget,
}

func serverFlag(cmd *cobra.Command) string {
	server, _ := cmd.Flags().GetString("server")
	return server
}

func timeoutFlag(cmd *cobra.Command) time.Duration {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return timeout
}

func runSubmit(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict")
	ruleSet := rules.Default()
	ruleSet.Strict = strict

	controller := form.NewController(form.NewClient(serverFlag(cmd), timeoutFlag(cmd)), form.WithRules(ruleSet))

	for flagName, field := range flagFields {
		value, _ := cmd.Flags().GetString(flagName)
		if err := controller.Change(field, value); err != nil {
			return err
		}
	}

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read attachment: %w", err)
		}
		controller.Attach(filepath.Base(path), mimetype.Detect(data).String(), data)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag(cmd))
	defer cancel()

	out, err := controller.Submit(ctx)
	var invalid *form.InvalidError
	if errors.As(err, &invalid) {
		for _, field := range rules.FieldOrder {
			if msg := controller.VisibleError(field); msg != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, msg)
			}
		}
		return fmt.Errorf("fix the %s field and try again", invalid.Field)
	}
	if err != nil {
		return err
	}

	return printOutcome(cmd, out)
}

func printOutcome(cmd *cobra.Command, out form.Outcome) error {
	w := cmd.OutOrStdout()
	if out.Kind == form.OutcomeSuccess {
		fmt.Fprintln(w, out.Message)
		if out.Result != nil {
			fmt.Fprintf(w, "notification: %s\n", out.Result.NotificationID)
			if out.Result.AutoReplySent {
				fmt.Fprintf(w, "auto-reply:   %s\n", out.Result.AutoReplyID)
			}
		}
		return nil
	}

	fmt.Fprintf(w, "%s: %s\n", out.Code, out.Message)
	if out.ReferenceID != "" {
		fmt.Fprintf(w, "reference: %s\n", out.ReferenceID)
	}
	if link := out.AlternativeURL(); link != "" {
		fmt.Fprintf(w, "reach out directly: %s\n", link)
	}
	return fmt.Errorf("submission failed with %s", out.Code)
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "Base URL of the contact service")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Request timeout")

	submitCmd.Flags().String("name", "", "Your name")
	submitCmd.Flags().String("email", "", "Your email address")
	submitCmd.Flags().String("subject", "", "Subject")
	submitCmd.Flags().String("category", "", "Category ("+rules.Categories+")")
	submitCmd.Flags().String("message", "", "Message")
	submitCmd.Flags().String("phone", "", "Phone number")
	submitCmd.Flags().String("contact-method", "", "Preferred contact method ("+rules.ContactMethods+")")
	submitCmd.Flags().String("budget", "", "Budget range ("+rules.BudgetRanges+")")
	submitCmd.Flags().String("file", "", "Path of a file to attach")
	submitCmd.Flags().Bool("strict", false, "Require phone, contact method and budget")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
