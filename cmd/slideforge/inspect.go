package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [project.yaml]",
	Short: "Показать расписание и видимые элементы в момент времени",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

var inspectAt float64

func init() {
	inspectCmd.Flags().Float64Var(&inspectAt, "at", -1, "Момент времени в секундах (если не задан, только расписание)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := projectPath(args)
	cfg := loadConfig()

	s, _, err := openProject(path, cfg)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}

	fmt.Printf("[*] Проект: %s, элементов: %d, длительность: %.2fs\n", path, len(s.Elements()), s.TotalDuration())

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTRACK\tSTART\tEND\tZ\tTRANSITION")
	for _, e := range s.Elements() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.3f\t%.3f\t%d\t%s %.2fs\n",
			e.ID, e.Kind, e.Track, e.StartTime, e.EndTime(), e.ZIndex, e.Transition.Type, e.Transition.Duration)
	}
	w.Flush()

	if inspectAt < 0 {
		return nil
	}

	states := s.FrameAt(inspectAt)
	fmt.Printf("\n[*] Видимые элементы в %.3fs: %d\n", inspectAt, len(states))
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tZ\tX\tY\tW\tH\tROT\tOPACITY\tSCALE\tOFFSET\tROTY")
	for _, v := range states {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.3f\t%.3f\t%.3f\t%.1f\n",
			v.ElementID, v.Kind, v.ZIndex, v.X, v.Y, v.Width, v.Height, v.Rotation,
			v.Opacity, v.Scale, v.OffsetX, v.RotateY)
	}
	return w.Flush()
}
