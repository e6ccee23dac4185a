package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pricewatch/scraper-cli/internal/model"
)

var websitesCmd = &cobra.Command{
	Use:   "websites",
	Short: "Manage tracked websites and their selector criteria",
}

var websitesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked websites",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		websites, err := st.ListWebsites(cmd.Context())
		if err != nil {
			return err
		}
		for _, w := range websites {
			fmt.Printf("%s\t%s\t%s\n", w.ID, w.Name, w.BaseURL)
		}
		return nil
	},
}

var websitesAddCmd = &cobra.Command{
	Use:   "add <name> <base-url>",
	Short: "Register a website",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		w, err := st.CreateWebsite(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("created website %s (%s)\n", w.Name, w.ID)
		return nil
	},
}

// websiteSeed is the YAML shape consumed by `websites import`.
type websiteSeed struct {
	Websites []struct {
		Name     string `yaml:"name"`
		BaseURL  string `yaml:"base_url"`
		Criteria []struct {
			Selector string `yaml:"selector"`
			Type     string `yaml:"type"`
		} `yaml:"criteria"`
	} `yaml:"websites"`
}

var websitesImportFile string

var websitesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import websites and selector criteria from a YAML seed file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if websitesImportFile == "" {
			return eris.New("--file is required")
		}

		data, err := os.ReadFile(websitesImportFile)
		if err != nil {
			return eris.Wrapf(err, "read seed file %s", websitesImportFile)
		}
		var seed websiteSeed
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return eris.Wrapf(err, "parse seed file %s", websitesImportFile)
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		for _, ws := range seed.Websites {
			w, err := st.CreateWebsite(cmd.Context(), ws.Name, ws.BaseURL)
			if err != nil {
				return err
			}
			for _, c := range ws.Criteria {
				typ := model.CriterionType(c.Type)
				if typ != model.CriterionNav && typ != model.CriterionContent {
					return eris.Errorf("invalid criterion type %q for website %s", c.Type, ws.Name)
				}
				if _, err := st.CreateCriterion(cmd.Context(), w.ID, c.Selector, typ); err != nil {
					return err
				}
			}
			fmt.Printf("imported website %s with %d criteria\n", ws.Name, len(ws.Criteria))
		}
		return nil
	},
}

var criteriaWebsite, criteriaType string

var criteriaAddCmd = &cobra.Command{
	Use:   "criteria-add <selector>",
	Short: "Add a selector criterion to a website",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ := model.CriterionType(criteriaType)
		if typ != model.CriterionNav && typ != model.CriterionContent {
			return eris.Errorf("invalid criterion type %q (want nav or content)", criteriaType)
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		w, err := st.GetWebsiteByName(cmd.Context(), criteriaWebsite)
		if err != nil {
			return err
		}
		c, err := st.CreateCriterion(cmd.Context(), w.ID, args[0], typ)
		if err != nil {
			return err
		}
		fmt.Printf("created criterion %s for website %s\n", c.ID, w.Name)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("migration complete")
		return nil
	},
}

func init() {
	websitesImportCmd.Flags().StringVar(&websitesImportFile, "file", "", "YAML seed file")
	criteriaAddCmd.Flags().StringVar(&criteriaWebsite, "website", "", "website name")
	criteriaAddCmd.Flags().StringVar(&criteriaType, "type", "content", "criterion type (nav or content)")

	websitesCmd.AddCommand(websitesListCmd)
	websitesCmd.AddCommand(websitesAddCmd)
	websitesCmd.AddCommand(websitesImportCmd)
	websitesCmd.AddCommand(criteriaAddCmd)
	rootCmd.AddCommand(websitesCmd)
	rootCmd.AddCommand(migrateCmd)
}
