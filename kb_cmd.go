package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/owui-tools/owui/types"
)

// kbFlags holds flag storage for the kb subcommands.
type kbFlags struct {
	Description string
	IgnoreFile  string
	Yes         bool

	// Query tuning, mirroring the chat retrieval flags.
	K                int
	KReranker        int
	R                float64
	Hybrid           bool
	HybridBM25Weight float64
}

var kbOpts = &kbFlags{}

// kbQueryOptions collects the explicitly-set query tuning flags.
func kbQueryOptions(cmd *cobra.Command) *types.RetrievalOptions {
	opts := &types.RetrievalOptions{}
	set := false
	if cmd.Flags().Changed("k") {
		opts.K = &kbOpts.K
		set = true
	}
	if cmd.Flags().Changed("k-reranker") {
		opts.KReranker = &kbOpts.KReranker
		set = true
	}
	if cmd.Flags().Changed("r") {
		opts.R = &kbOpts.R
		set = true
	}
	if cmd.Flags().Changed("hybrid") {
		opts.Hybrid = &kbOpts.Hybrid
		set = true
	}
	if cmd.Flags().Changed("hybrid-bm25-weight") {
		opts.HybridBM25Weight = &kbOpts.HybridBM25Weight
		set = true
	}
	if !set {
		return nil
	}
	return opts
}

// Knowledge base command group
var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage knowledge bases and their files",
	Long: `Manage knowledge bases and their files on the Open WebUI server.

EXAMPLES:
  owui kb create "Handbook" --description "Company handbook"
  owui kb list
  owui kb list-files KB_ID
  owui kb upload-file KB_ID ./handbook.pdf
  owui kb upload-dir KB_ID ./docs --ignore-file .kbignore
  owui kb update-file FILE_ID ./handbook.pdf
  owui kb query KB_ID "vacation policy" --k 5
  owui kb delete-file FILE_ID
  owui kb delete-all-files KB_ID --yes
  owui kb delete KB_ID`,
}

var kbCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		kb, err := client.CreateKnowledge(cmd.Context(), args[0], kbOpts.Description)
		if err != nil {
			return fmt.Errorf("failed to create knowledge base: %w", err)
		}

		if jsonOutput() {
			return printJSON(kb)
		}
		fmt.Printf("✅ Knowledge base created: %s (%s)\n", kb.Name, kb.ID)
		return nil
	},
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge bases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		kbs, err := client.ListKnowledge(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list knowledge bases: %w", err)
		}

		if jsonOutput() {
			return printJSON(kbs)
		}
		printKnowledgeList(kbs)
		return nil
	},
}

var kbListFilesCmd = &cobra.Command{
	Use:   "list-files KB_ID",
	Short: "List the files in a knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		files, err := client.ListKnowledgeFiles(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to list knowledge base files: %w", err)
		}

		if jsonOutput() {
			return printJSON(files)
		}
		printFileList(files)
		return nil
	},
}

var kbUploadFileCmd = &cobra.Command{
	Use:   "upload-file KB_ID PATH",
	Short: "Upload a file into a knowledge base",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		if !rootConfig.Quiet || rootConfig.Normal {
			fmt.Printf("📦 Uploading %s...\n", args[1])
		}

		file, err := client.UploadFile(cmd.Context(), args[1], args[0])
		if err != nil {
			return fmt.Errorf("failed to upload file: %w", err)
		}

		if jsonOutput() {
			return printJSON(file)
		}
		fmt.Printf("✅ File uploaded: %s (%s)\n", file.Filename, file.ID)
		return nil
	},
}

var kbUploadDirCmd = &cobra.Command{
	Use:   "upload-dir KB_ID DIR",
	Short: "Upload a directory tree into a knowledge base",
	Long: `Upload every file under DIR into a knowledge base.

A gitignore-style .kbignore file in the directory root (or the file given
with --ignore-file) excludes files and subtrees from the upload. Files that
fail to upload are skipped and reported; the rest are attached in one batch.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		if !rootConfig.Quiet || rootConfig.Normal {
			fmt.Printf("📦 Uploading directory %s...\n", args[1])
		}

		files, err := client.UploadDirectory(cmd.Context(), args[1], args[0], kbOpts.IgnoreFile)
		if err != nil {
			return fmt.Errorf("failed to upload directory: %w", err)
		}

		if jsonOutput() {
			return printJSON(files)
		}
		fmt.Printf("✅ Uploaded %d files into %s\n", len(files), args[0])
		return nil
	},
}

var kbUpdateFileCmd = &cobra.Command{
	Use:   "update-file FILE_ID PATH",
	Short: "Replace an uploaded file's content",
	Long:  "Replace the content of an already-uploaded file with a local file, triggering re-indexing.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		file, err := client.UpdateFileContent(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to update file content: %w", err)
		}

		if jsonOutput() {
			return printJSON(file)
		}
		fmt.Printf("✅ File content updated: %s\n", args[0])
		return nil
	},
}

var kbQueryCmd = &cobra.Command{
	Use:   "query KB_ID QUERY",
	Short: "Query a knowledge base",
	Long:  "Run a retrieval query against a knowledge base and print the matching chunks.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		chunks, err := client.QueryCollections(cmd.Context(), args[1], []string{args[0]}, kbQueryOptions(cmd))
		if err != nil {
			return fmt.Errorf("failed to query knowledge base: %w", err)
		}

		if jsonOutput() {
			return printJSON(chunks)
		}
		if len(chunks) == 0 {
			fmt.Println("No matching chunks")
			return nil
		}
		for i, chunk := range chunks {
			fmt.Printf("--- chunk %d ---\n%s\n\n", i+1, chunk.Content)
		}
		return nil
	},
}

var kbDeleteFileCmd = &cobra.Command{
	Use:   "delete-file FILE_ID",
	Short: "Delete an uploaded file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		if !confirm(fmt.Sprintf("Delete file %s?", args[0]), kbOpts.Yes) {
			fmt.Println("Aborted")
			return nil
		}

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		if err := client.DeleteFile(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}

		fmt.Printf("✅ File deleted: %s\n", args[0])
		return nil
	},
}

var kbDeleteAllFilesCmd = &cobra.Command{
	Use:   "delete-all-files KB_ID",
	Short: "Delete every file in a knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		if !confirm(fmt.Sprintf("Delete ALL files in knowledge base %s?", args[0]), kbOpts.Yes) {
			fmt.Println("Aborted")
			return nil
		}

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		result, err := client.DeleteAllFiles(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to delete knowledge base files: %w", err)
		}

		if jsonOutput() {
			return printJSON(result)
		}
		if result.Failed > 0 {
			fmt.Printf("⚠️  Deleted %d files, %d failed\n", result.Successful, result.Failed)
		} else {
			fmt.Printf("✅ Deleted %d files\n", result.Successful)
		}
		return nil
	},
}

var kbDeleteCmd = &cobra.Command{
	Use:   "delete KB_ID",
	Short: "Delete a knowledge base",
	Long:  "Delete a knowledge base. Files uploaded into it remain; run delete-all-files first for a full cleanup.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		if !confirm(fmt.Sprintf("Delete knowledge base %s?", args[0]), kbOpts.Yes) {
			fmt.Println("Aborted")
			return nil
		}

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		if err := client.DeleteKnowledge(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete knowledge base: %w", err)
		}

		fmt.Printf("✅ Knowledge base deleted: %s\n", args[0])
		return nil
	},
}

func init() {
	kbCreateCmd.Flags().StringVar(&kbOpts.Description, "description", "", "Knowledge base description")
	kbUploadDirCmd.Flags().StringVar(&kbOpts.IgnoreFile, "ignore-file", "", "Gitignore-style file listing paths to skip (default: .kbignore in DIR)")

	kbQueryCmd.Flags().IntVar(&kbOpts.K, "k", 0, "Number of chunks to retrieve")
	kbQueryCmd.Flags().IntVar(&kbOpts.KReranker, "k-reranker", 0, "Number of chunks to keep after reranking")
	kbQueryCmd.Flags().Float64Var(&kbOpts.R, "r", 0, "Minimum relevance threshold")
	kbQueryCmd.Flags().BoolVar(&kbOpts.Hybrid, "hybrid", false, "Enable hybrid (BM25 + vector) search")
	kbQueryCmd.Flags().Float64Var(&kbOpts.HybridBM25Weight, "hybrid-bm25-weight", 0, "BM25 weight for hybrid search")

	for _, cmd := range []*cobra.Command{kbDeleteFileCmd, kbDeleteAllFilesCmd, kbDeleteCmd} {
		cmd.Flags().BoolVarP(&kbOpts.Yes, "yes", "y", false, "Skip confirmation prompt")
	}

	kbCmd.AddCommand(kbCreateCmd)
	kbCmd.AddCommand(kbListCmd)
	kbCmd.AddCommand(kbListFilesCmd)
	kbCmd.AddCommand(kbUploadFileCmd)
	kbCmd.AddCommand(kbUploadDirCmd)
	kbCmd.AddCommand(kbUpdateFileCmd)
	kbCmd.AddCommand(kbQueryCmd)
	kbCmd.AddCommand(kbDeleteFileCmd)
	kbCmd.AddCommand(kbDeleteAllFilesCmd)
	kbCmd.AddCommand(kbDeleteCmd)
}
