package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/store"
)

var employeesCmd = &cobra.Command{
	Use:   "employees",
	Short: "Manage the distribution roster",
}

var employeesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List employees",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		division, _ := cmd.Flags().GetString("division")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		emps, err := st.ListEmployees(ctx, store.EmployeeFilter{Division: division})
		if err != nil {
			return eris.Wrap(err, "employees list")
		}

		for _, e := range emps {
			fmt.Printf("%-40s  %-24s  %-12s  %-10s  %s\n",
				e.Email, e.FullName, e.Division, e.Role, e.Status)
		}
		return nil
	},
}

var employeesUpsertCmd = &cobra.Command{
	Use:   "upsert",
	Short: "Add or update an employee",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		division, _ := cmd.Flags().GetString("division")
		role, _ := cmd.Flags().GetString("role")
		status, _ := cmd.Flags().GetString("status")
		calendar, _ := cmd.Flags().GetString("calendar-link")

		if email == "" || name == "" || division == "" {
			return eris.New("employees upsert: --email, --name, and --division are required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		emp := model.Employee{
			Email:        email,
			FullName:     name,
			Division:     division,
			Role:         model.EmployeeRole(role),
			Status:       model.EmployeeStatus(status),
			CalendarLink: calendar,
		}
		if err := st.UpsertEmployee(ctx, emp); err != nil {
			return eris.Wrap(err, "employees upsert")
		}

		zap.L().Info("employee saved", zap.String("email", email), zap.String("division", division))
		return nil
	},
}

func init() {
	employeesListCmd.Flags().String("division", "", "restrict to a division")
	employeesUpsertCmd.Flags().String("email", "", "employee email (identity)")
	employeesUpsertCmd.Flags().String("name", "", "full name")
	employeesUpsertCmd.Flags().String("division", "", "division")
	employeesUpsertCmd.Flags().String("role", "staff", "role: staff or team_lead")
	employeesUpsertCmd.Flags().String("status", "active", "status: active or inactive")
	employeesUpsertCmd.Flags().String("calendar-link", "", "booking calendar URL")
	employeesCmd.AddCommand(employeesListCmd)
	employeesCmd.AddCommand(employeesUpsertCmd)
	rootCmd.AddCommand(employeesCmd)
}
