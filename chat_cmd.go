package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/owui-tools/owui/types"
)

// chatFlags holds flag storage for the chat subcommands.
type chatFlags struct {
	Model    string
	FolderID string
	KBIDs    []string
	Yes      bool

	// Retrieval tuning; only sent when explicitly set on the command line.
	K                int
	KReranker        int
	R                float64
	Hybrid           bool
	HybridBM25Weight float64
}

var chatOpts = &chatFlags{}

// retrievalOptions turns the explicitly-set retrieval flags into a request,
// or nil when none were given so the server uses its own defaults.
func retrievalOptions(cmd *cobra.Command) *types.RetrievalOptions {
	opts := &types.RetrievalOptions{}
	set := false
	if cmd.Flags().Changed("k") {
		opts.K = &chatOpts.K
		set = true
	}
	if cmd.Flags().Changed("k-reranker") {
		opts.KReranker = &chatOpts.KReranker
		set = true
	}
	if cmd.Flags().Changed("r") {
		opts.R = &chatOpts.R
		set = true
	}
	if cmd.Flags().Changed("hybrid") {
		opts.Hybrid = &chatOpts.Hybrid
		set = true
	}
	if cmd.Flags().Changed("hybrid-bm25-weight") {
		opts.HybridBM25Weight = &chatOpts.HybridBM25Weight
		set = true
	}
	if !set {
		return nil
	}
	return opts
}

// addRetrievalFlags registers the shared retrieval tuning flags.
func addRetrievalFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&chatOpts.KBIDs, "kb-id", nil, "Knowledge base ID to retrieve context from (repeatable)")
	cmd.Flags().IntVar(&chatOpts.K, "k", 0, "Number of chunks to retrieve")
	cmd.Flags().IntVar(&chatOpts.KReranker, "k-reranker", 0, "Number of chunks to keep after reranking")
	cmd.Flags().Float64Var(&chatOpts.R, "r", 0, "Minimum relevance threshold")
	cmd.Flags().BoolVar(&chatOpts.Hybrid, "hybrid", false, "Enable hybrid (BM25 + vector) search")
	cmd.Flags().Float64Var(&chatOpts.HybridBM25Weight, "hybrid-bm25-weight", 0, "BM25 weight for hybrid search")
}

// Chat command group
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Manage chats",
	Long: `Manage chats on the Open WebUI server.

EXAMPLES:
  owui chat create llama3 "Explain goroutines"
  owui chat create llama3 "What does the handbook say?" --kb-id KB_ID --k 5
  owui chat continue CHAT_ID "And channels?"
  owui chat list
  owui chat list CHAT_ID
  owui chat rename CHAT_ID "Concurrency notes"
  owui chat delete CHAT_ID`,
}

var chatCreateCmd = &cobra.Command{
	Use:   "create MODEL PROMPT",
	Short: "Start a new chat",
	Long: `Start a new chat: send PROMPT to MODEL and store the exchange.

With one or more --kb-id flags the prompt is augmented with context retrieved
from those knowledge bases before it reaches the model. The stored chat
history always contains the original prompt.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		var folderID *string
		if chatOpts.FolderID != "" {
			folderID = &chatOpts.FolderID
		}

		if !rootConfig.Quiet || rootConfig.Normal {
			fmt.Printf("💬 Asking %s...\n", args[0])
		}

		chat, err := client.CreateChat(cmd.Context(), args[0], args[1], folderID, chatOpts.KBIDs, retrievalOptions(cmd))
		if err != nil {
			return fmt.Errorf("failed to create chat: %w", err)
		}

		if jsonOutput() {
			return printJSON(chat)
		}
		if n := len(chat.Chat.Messages); n > 0 {
			fmt.Println(chat.Chat.Messages[n-1].Content)
		}
		fmt.Printf("\n✅ Chat created: %s\n", chat.ID)
		return nil
	},
}

var chatContinueCmd = &cobra.Command{
	Use:   "continue CHAT_ID PROMPT",
	Short: "Continue an existing chat",
	Long: `Continue an existing chat with a new prompt, reusing the chat's model.

Retrieval flags work the same way as for 'chat create'.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		chat, err := client.ContinueChat(cmd.Context(), args[0], args[1], chatOpts.KBIDs, retrievalOptions(cmd))
		if err != nil {
			return fmt.Errorf("failed to continue chat: %w", err)
		}

		if jsonOutput() {
			return printJSON(chat)
		}
		if n := len(chat.Chat.Messages); n > 0 {
			fmt.Println(chat.Chat.Messages[n-1].Content)
		}
		return nil
	},
}

var chatListCmd = &cobra.Command{
	Use:   "list [CHAT_ID]",
	Short: "List chats, or show one chat's history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			chat, err := client.GetChat(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get chat: %w", err)
			}
			if jsonOutput() {
				return printJSON(chat)
			}
			printChat(chat)
			return nil
		}

		chats, err := client.ListChats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list chats: %w", err)
		}
		if jsonOutput() {
			return printJSON(chats)
		}
		printChatList(chats)
		return nil
	},
}

var chatRenameCmd = &cobra.Command{
	Use:   "rename CHAT_ID NEW_TITLE",
	Short: "Rename a chat",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		chat, err := client.RenameChat(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to rename chat: %w", err)
		}

		if jsonOutput() {
			return printJSON(chat)
		}
		fmt.Printf("✅ Chat renamed: %s\n", args[1])
		return nil
	},
}

var chatDeleteCmd = &cobra.Command{
	Use:   "delete CHAT_ID",
	Short: "Delete a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		if !confirm(fmt.Sprintf("Delete chat %s?", args[0]), chatOpts.Yes) {
			fmt.Println("Aborted")
			return nil
		}

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		if err := client.DeleteChat(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete chat: %w", err)
		}

		fmt.Printf("✅ Chat deleted: %s\n", args[0])
		return nil
	},
}

func init() {
	chatCreateCmd.Flags().StringVar(&chatOpts.FolderID, "folder-id", "", "File the new chat under this folder")
	addRetrievalFlags(chatCreateCmd)
	addRetrievalFlags(chatContinueCmd)
	chatDeleteCmd.Flags().BoolVarP(&chatOpts.Yes, "yes", "y", false, "Skip confirmation prompt")

	chatCmd.AddCommand(chatCreateCmd)
	chatCmd.AddCommand(chatContinueCmd)
	chatCmd.AddCommand(chatListCmd)
	chatCmd.AddCommand(chatRenameCmd)
	chatCmd.AddCommand(chatDeleteCmd)
}
