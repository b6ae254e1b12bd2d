package main

import (
	"fmt"
	"text/tabwriter"

	"cyberblog/internal/index"

	"github.com/spf13/cobra"
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "List posts from the index of the last build",
	RunE:  runPosts,
}

func init() {
	postsCmd.Flags().String("category", "", "only posts in this category")
	postsCmd.Flags().String("tag", "", "only posts with this tag")
	postsCmd.Flags().Int("page", 1, "page number")
	postsCmd.Flags().Int("size", 20, "posts per page")
	rootCmd.AddCommand(postsCmd)
}

func runPosts(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := index.Open(index.OpenOptions{Path: cfg.Build.IndexPath, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("%w (run `cyberblog build` first)", err)
	}
	defer st.Close()

	opt := index.ListOptions{}
	opt.Category, _ = cmd.Flags().GetString("category")
	opt.Tag, _ = cmd.Flags().GetString("tag")
	opt.Page, _ = cmd.Flags().GetInt("page")
	opt.Size, _ = cmd.Flags().GetInt("size")

	posts, err := st.List(opt)
	if err != nil {
		return err
	}
	builtAt, err := st.BuiltAt()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCATEGORY\tID\tTITLE")
	for _, p := range posts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.DateString(), p.Category, p.ID, p.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d posts shown, index built %s\n", len(posts), builtAt.Format("2006-01-02 15:04"))
	return nil
}
