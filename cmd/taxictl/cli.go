package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/BearBump/TaxiOrders/internal/models"
	"github.com/BearBump/TaxiOrders/internal/report"
	"github.com/BearBump/TaxiOrders/internal/services/orders"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// newRootCommand builds the taxictl command tree. open is called once per
// command that needs the registry.
func newRootCommand(open envFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "taxictl",
		Short:         "Taxi order registry operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", os.Getenv("configPath"), "Path to the YAML config")

	run := func(fn func(ctx context.Context, cmd *cobra.Command, env *environment, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			env, err := open(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			defer env.Close()
			return fn(cmd.Context(), cmd, env, args)
		}
	}

	root.AddCommand(newDBCmd(run))
	root.AddCommand(newOrdersCmd(run))
	root.AddCommand(newBackupCmd(run))
	root.AddCommand(newReportCmd(run))
	return root
}

type runner func(fn func(ctx context.Context, cmd *cobra.Command, env *environment, args []string) error) func(*cobra.Command, []string) error

func newDBCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the registry database",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "exists",
		Short: "Report whether the database exists",
		RunE: run(func(ctx context.Context, cmd *cobra.Command, env *environment, _ []string) error {
			ok, err := env.orders.DatabaseExists(ctx)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(cmd.OutOrStdout(), "database %s exists\n", env.dbName)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "database %s does not exist\n", env.dbName)
			}
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create the database and the orders table",
		RunE: run(func(ctx context.Context, cmd *cobra.Command, env *environment, _ []string) error {
			if err := env.orders.CreateDatabase(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database %s created\n", env.dbName)
			return nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "drop",
		Short: "Drop the database, closing other sessions",
		RunE: run(func(ctx context.Context, cmd *cobra.Command, env *environment, _ []string) error {
			if err := env.orders.DropDatabase(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database %s dropped\n", env.dbName)
			return nil
		}),
	})
	return cmd
}

func newOrdersCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Query and edit orders",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		RunE: run(func(ctx context.Context, cmd *cobra.Command, env *environment, _ []string) error {
			car, _ := cmd.Flags().GetString("car")
			status, _ := cmd.Flags().GetString("status")
			sortFlag, _ := cmd.Flags().GetString("sort")
			sort, err := orders.ParseSort(sortFlag)
			if err != nil {
				return err
			}
			list, err := env.orders.List(ctx, orders.Query{CarNumber: car, Status: status, Sort: sort})
			if err != nil {
				return err
			}
			return printOrders(cmd, list)
		}),
	}
	listCmd.Flags().String("car", "", "Exact car number")
	listCmd.Flags().String("status", "", "Exact order status")
	listCmd.Flags().String("sort", "", "Sort by id: asc or desc")

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, env *environment, args []string) error {
			id, err := orders.ParseID(args[0])
			if err != nil {
				return err
			}
			o, err := env.orders.Get(ctx, id)
			if err != nil {
				return err
			}
			return printOrders(cmd, []*models.Order{o})
		}),
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add an order",
		RunE: run(func(ctx context.Context, cmd *cobra.Command, env *environment, _ []string) error {
			var o models.Order
			applyOrderFlags(cmd, &o)
			id, err := env.orders.Insert(ctx, o)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %d created\n", id)
			return nil
		}),
	}
	addOrderFlags(addCmd)

	updateCmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Update an order; omitted flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, env *environment, args []string) error {
			id, err := orders.ParseID(args[0])
			if err != nil {
				return err
			}
			cur, err := env.orders.Get(ctx, id)
			if err != nil {
				return err
			}
			o := *cur
			applyOrderFlags(cmd, &o)
			if err := env.orders.Update(ctx, o); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %d updated\n", id)
			return nil
		}),
	}
	addOrderFlags(updateCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an order",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, env *environment, args []string) error {
			id, err := orders.ParseID(args[0])
			if err != nil {
				return err
			}
			if err := env.orders.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %d deleted\n", id)
			return nil
		}),
	}

	cmd.AddCommand(listCmd, getCmd, addCmd, updateCmd, deleteCmd)
	return cmd
}

func addOrderFlags(cmd *cobra.Command) {
	cmd.Flags().String("driver", "", "Driver name")
	cmd.Flags().String("car", "", "Car number")
	cmd.Flags().String("phone", "", "Client phone")
	cmd.Flags().String("status", "", "Order status")
}

func applyOrderFlags(cmd *cobra.Command, o *models.Order) {
	set := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	set("driver", &o.DriverName)
	set("car", &o.CarNumber)
	set("phone", &o.ClientPhone)
	set("status", &o.OrderStatus)
}

func printOrders(cmd *cobra.Command, list []*models.Order) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDRIVER\tCAR\tPHONE\tSTATUS")
	for _, o := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", o.ID, o.DriverName, o.CarNumber, o.ClientPhone, o.OrderStatus)
	}
	return tw.Flush()
}

func newBackupCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Dump and restore the registry",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Write a SQL dump",
		RunE: run(func(ctx context.Context, cmd *cobra.Command, env *environment, _ []string) error {
			res, err := env.backups.Dump(ctx)
			if res.Path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "dump written to %s (%s)\n", res.Path, humanize.Bytes(uint64(res.SizeBytes)))
			}
			if res.ObjectKey != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded as %s\n", res.ObjectKey)
			}
			return err
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "restore [path]",
		Short: "Restore the registry from a SQL dump",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, cmd *cobra.Command, env *environment, args []string) error {
			if err := env.backups.Restore(ctx, args[0]); err != nil {
				return err
			}
			env.orders.InvalidateLists(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "restored from %s\n", args[0])
			return nil
		}),
	})
	return cmd
}

func newReportCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export all orders to pdf or xlsx",
		RunE: run(func(ctx context.Context, cmd *cobra.Command, env *environment, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")

			gen, err := report.ForFormat(format, env.report)
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(env.reportDir, report.FileName(gen.Format(), time.Now()))
			}
			n, err := report.Export(ctx, env.orders, gen, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d orders exported to %s\n", n, out)
			return nil
		}),
	}
	cmd.Flags().String("format", "pdf", "pdf or xlsx")
	cmd.Flags().String("out", "", "Output file (default: report dir with a timestamped name)")
	return cmd
}
