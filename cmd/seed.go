package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/expanders360/vendor-match/internal/model"
	"github.com/expanders360/vendor-match/internal/store"
)

// seedFile is the YAML fixture layout. Services, clients, and vendors
// are referenced by name from vendors and projects.
type seedFile struct {
	Services []string `yaml:"services"`
	Clients  []struct {
		CompanyName  string `yaml:"company_name"`
		ContactEmail string `yaml:"contact_email"`
	} `yaml:"clients"`
	Vendors []struct {
		Name             string   `yaml:"name"`
		Rating           float64  `yaml:"rating"`
		ResponseSLAHours int      `yaml:"response_sla_hours"`
		Countries        []string `yaml:"countries"`
		Services         []string `yaml:"services"`
	} `yaml:"vendors"`
	Projects []struct {
		Client   string   `yaml:"client"`
		Country  string   `yaml:"country"`
		Budget   float64  `yaml:"budget"`
		Status   string   `yaml:"status"`
		Services []string `yaml:"services"`
	} `yaml:"projects"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <fixtures.yaml>",
	Short: "Load YAML fixtures into the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "seed: read %s", args[0])
		}

		var fixtures seedFile
		if err := yaml.Unmarshal(data, &fixtures); err != nil {
			return eris.Wrapf(err, "seed: parse %s", args[0])
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "seed: migrate")
		}

		if err := loadFixtures(ctx, st, &fixtures); err != nil {
			return err
		}

		fmt.Printf("seeded %d service(s), %d client(s), %d vendor(s), %d project(s)\n",
			len(fixtures.Services), len(fixtures.Clients), len(fixtures.Vendors), len(fixtures.Projects))
		return nil
	},
}

func loadFixtures(ctx context.Context, st store.Store, fixtures *seedFile) error {
	log := zap.L().With(zap.String("command", "seed"))

	serviceIDs := make(map[string]int64, len(fixtures.Services))
	for _, name := range fixtures.Services {
		svc := model.Service{Name: name}
		if err := st.CreateService(ctx, &svc); err != nil {
			return eris.Wrapf(err, "seed: service %q", name)
		}
		serviceIDs[name] = svc.ID
	}

	clientIDs := make(map[string]int64, len(fixtures.Clients))
	for _, c := range fixtures.Clients {
		client := model.Client{CompanyName: c.CompanyName, ContactEmail: c.ContactEmail}
		if err := st.CreateClient(ctx, &client); err != nil {
			return eris.Wrapf(err, "seed: client %q", c.CompanyName)
		}
		clientIDs[c.CompanyName] = client.ID
	}

	resolve := func(names []string) ([]int64, error) {
		ids := make([]int64, 0, len(names))
		for _, name := range names {
			id, ok := serviceIDs[name]
			if !ok {
				return nil, eris.Errorf("seed: unknown service %q", name)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	for _, v := range fixtures.Vendors {
		vendor := model.Vendor{
			Name:             v.Name,
			Rating:           v.Rating,
			ResponseSLAHours: v.ResponseSLAHours,
		}
		if err := st.CreateVendor(ctx, &vendor); err != nil {
			return eris.Wrapf(err, "seed: vendor %q", v.Name)
		}
		ids, err := resolve(v.Services)
		if err != nil {
			return err
		}
		if err := st.SetVendorServices(ctx, vendor.ID, ids); err != nil {
			return eris.Wrapf(err, "seed: vendor %q services", v.Name)
		}
		if err := st.SetVendorCountries(ctx, vendor.ID, v.Countries); err != nil {
			return eris.Wrapf(err, "seed: vendor %q countries", v.Name)
		}
		log.Debug("vendor seeded", zap.String("name", v.Name), zap.Int64("id", vendor.ID))
	}

	for _, p := range fixtures.Projects {
		clientID, ok := clientIDs[p.Client]
		if !ok {
			return eris.Errorf("seed: unknown client %q", p.Client)
		}
		status := model.ProjectStatus(p.Status)
		if status == "" {
			status = model.ProjectStatusActive
		}
		project := model.Project{
			ClientID: clientID,
			Country:  p.Country,
			Budget:   p.Budget,
			Status:   status,
		}
		if err := st.CreateProject(ctx, &project); err != nil {
			return eris.Wrapf(err, "seed: project for %q", p.Client)
		}
		ids, err := resolve(p.Services)
		if err != nil {
			return err
		}
		if err := st.SetProjectServices(ctx, project.ID, ids); err != nil {
			return eris.Wrapf(err, "seed: project %d services", project.ID)
		}
		log.Debug("project seeded", zap.Int64("id", project.ID), zap.String("country", p.Country))
	}

	return nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
