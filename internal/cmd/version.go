package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var checkCluster bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of marinade-cli",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "marinade-cli version %s\n", version)
		if !checkCluster {
			return nil
		}
		r, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer r.close()
		v, err := r.client.CheckVersion(r.ctx)
		if v != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "cluster %s version %s\n", r.client.URL, v)
		}
		return err
	},
}

func init() {
	versionCmd.Flags().BoolVar(&checkCluster, "cluster", false, "Also query and check the version of the cluster")
}
