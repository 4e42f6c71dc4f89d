package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/fare-cli/internal/citycodes"
)

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "Manage the city-code list",
	Long:  "Commands for viewing and editing the CODE - City Name list used to pick destinations.",
}

var citiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known cities",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cities, err := citycodes.Load(cfg.Cities.File)
		if err != nil {
			return err
		}
		printCities(os.Stdout, cities)
		return nil
	},
}

var citiesAddCmd = &cobra.Command{
	Use:     "add <entry>...",
	Short:   "Add cities to the list",
	Example: `  fare-cli cities add "BKI - Kota Kinabalu" "SIN - Singapore"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editCities(cfg.Cities.File, func(cities []citycodes.City) ([]citycodes.City, error) {
			for _, entry := range args {
				c, err := citycodes.Parse(entry)
				if err != nil {
					return nil, err
				}
				if cities, err = citycodes.Add(cities, c); err != nil {
					return nil, err
				}
				fmt.Fprintf(os.Stderr, "Added %s\n", c)
			}
			return cities, nil
		})
	},
}

var citiesRemoveCmd = &cobra.Command{
	Use:   "remove <code>...",
	Short: "Remove cities from the list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editCities(cfg.Cities.File, func(cities []citycodes.City) ([]citycodes.City, error) {
			var err error
			for _, code := range args {
				if cities, err = citycodes.Remove(cities, code); err != nil {
					return nil, err
				}
				fmt.Fprintf(os.Stderr, "Removed %s\n", citycodes.Code(code))
			}
			return cities, nil
		})
	},
}

func init() {
	citiesCmd.AddCommand(citiesListCmd)
	citiesCmd.AddCommand(citiesAddCmd)
	citiesCmd.AddCommand(citiesRemoveCmd)
	rootCmd.AddCommand(citiesCmd)
}

// editCities loads the list at path, applies edit and saves the result.
// Nothing is written if edit fails.
func editCities(path string, edit func([]citycodes.City) ([]citycodes.City, error)) error {
	cities, err := citycodes.Load(path)
	if err != nil {
		return err
	}
	cities, err = edit(cities)
	if err != nil {
		return eris.Wrap(err, "cities")
	}
	return citycodes.Save(path, cities)
}

func printCities(out io.Writer, cities []citycodes.City) {
	for _, c := range cities {
		_, _ = fmt.Fprintln(out, c.String())
	}
}
