package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var folderYes bool

// Folder command group
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage chat folders",
	Long: `Manage chat folders on the Open WebUI server.

EXAMPLES:
  owui folder create "Work"
  owui folder list
  owui folder list-chats FOLDER_ID
  owui folder rename FOLDER_ID "Archive"
  owui folder delete FOLDER_ID`,
}

var folderCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		folder, err := client.CreateFolder(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to create folder: %w", err)
		}

		if jsonOutput() {
			return printJSON(folder)
		}
		fmt.Printf("✅ Folder created: %s (%s)\n", folder.Name, folder.ID)
		return nil
	},
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List folders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		folders, err := client.ListFolders(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list folders: %w", err)
		}

		if jsonOutput() {
			return printJSON(folders)
		}
		printFolderList(folders)
		return nil
	},
}

var folderListChatsCmd = &cobra.Command{
	Use:   "list-chats FOLDER_ID",
	Short: "List the chats inside a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		chats, err := client.ListChatsByFolder(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to list folder chats: %w", err)
		}

		if jsonOutput() {
			return printJSON(chats)
		}
		printChatList(chats)
		return nil
	},
}

var folderRenameCmd = &cobra.Command{
	Use:   "rename FOLDER_ID NEW_NAME",
	Short: "Rename a folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		if err := client.RenameFolder(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("failed to rename folder: %w", err)
		}

		fmt.Printf("✅ Folder renamed: %s\n", args[1])
		return nil
	},
}

var folderDeleteCmd = &cobra.Command{
	Use:   "delete FOLDER_ID",
	Short: "Delete a folder",
	Long:  "Delete a folder. Chats inside it are moved back to the root level, not deleted.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootConfig.Mode = "cli"

		if !confirm(fmt.Sprintf("Delete folder %s?", args[0]), folderYes) {
			fmt.Println("Aborted")
			return nil
		}

		client, err := getCachedClient(rootConfig)
		if err != nil {
			return err
		}

		if err := client.DeleteFolder(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete folder: %w", err)
		}

		fmt.Printf("✅ Folder deleted: %s\n", args[0])
		return nil
	},
}

func init() {
	folderDeleteCmd.Flags().BoolVarP(&folderYes, "yes", "y", false, "Skip confirmation prompt")

	folderCmd.AddCommand(folderCreateCmd)
	folderCmd.AddCommand(folderListCmd)
	folderCmd.AddCommand(folderListChatsCmd)
	folderCmd.AddCommand(folderRenameCmd)
	folderCmd.AddCommand(folderDeleteCmd)
}
