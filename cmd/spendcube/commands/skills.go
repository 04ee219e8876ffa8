package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/YvodeRooij/spendcube/internal/config"
	"github.com/YvodeRooij/spendcube/internal/printer"
	"github.com/YvodeRooij/spendcube/internal/skills"
	"github.com/spf13/cobra"
)

var detectRecordsPath string

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Inspect the taxonomy skill catalog",
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every skill in the catalog",
	RunE:  runSkillsList,
}

var skillsDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show which skills a batch of records would load",
	Long: `Score a batch of records against the skill catalog and print the
skills that would be loaded for classification, highest score first.

Examples:
  spendcube skills detect --records batch.json`,
	RunE: runSkillsDetect,
}

func init() {
	skillsDetectCmd.Flags().StringVarP(&detectRecordsPath, "records", "r", "", "Records file (.json, .yml or .yaml)")
	skillsDetectCmd.MarkFlagRequired("records")

	skillsCmd.AddCommand(skillsListCmd, skillsDetectCmd)
	rootCmd.AddCommand(skillsCmd)
}

func runSkillsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, s := range reg.All() {
		rows = append(rows, []string{
			s.ID,
			s.Name,
			strings.Join(s.Segments, ","),
			strconv.Itoa(s.Priority),
			strconv.FormatBool(s.AlwaysLoad),
		})
	}
	printer.Table([]string{"ID", "NAME", "SEGMENTS", "PRIORITY", "ALWAYS LOAD"}, rows)
	printer.Printf("\n%d skills covering segments %s\n", len(rows), strings.Join(reg.AllCoveredSegments(), ", "))
	return nil
}

func runSkillsDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	records, err := config.LoadRecords(detectRecordsPath)
	if err != nil {
		return printer.Error("failed to load records", err.Error(), []string{"Records files hold a JSON or YAML list of {id, vendor, description, amount}"})
	}

	d := skills.NewDetector(reg)
	scores := d.Scores(records)
	selected := d.DetectRelevantSkills(records)
	if len(selected) == 0 {
		printer.Warning("No skill matched %d records\n", len(records))
		return nil
	}

	var rows [][]string
	for _, s := range selected {
		rows = append(rows, []string{s.ID, fmt.Sprintf("%.1f", scores[s.ID]), strconv.FormatBool(s.AlwaysLoad)})
	}
	printer.Table([]string{"SKILL", "SCORE", "ALWAYS LOAD"}, rows)
	return nil
}
