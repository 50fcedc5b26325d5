package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/owui-tools/owui/types"
)

// printJSON renders any command result as indented JSON on stdout.
func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// jsonOutput reports whether --output json was requested.
func jsonOutput() bool {
	return rootConfig.Output == "json"
}

// confirm prompts on stdin before destructive operations. The assumeYes flag
// (--yes) skips the prompt.
func confirm(prompt string, assumeYes bool) bool {
	if assumeYes {
		return true
	}
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// formatTimestamp renders a Unix epoch second as a readable local time.
func formatTimestamp(epoch int64) string {
	if epoch == 0 {
		return "-"
	}
	return time.Unix(epoch, 0).Format("2006-01-02 15:04")
}

// printChat renders a chat with its message history.
func printChat(chat *types.ChatResponse) {
	fmt.Printf("💬 %s (%s)\n", chat.Title, chat.ID)
	if chat.FolderID != nil {
		fmt.Printf("   Folder: %s\n", *chat.FolderID)
	}
	if len(chat.Chat.Models) > 0 {
		fmt.Printf("   Model: %s\n", chat.Chat.Models[0])
	}
	for _, msg := range chat.Chat.Messages {
		fmt.Printf("\n[%s]\n%s\n", msg.Role, msg.Content)
	}
}

// printChatList renders a compact chat listing.
func printChatList(chats []types.ChatTitleID) {
	if len(chats) == 0 {
		fmt.Println("No chats found")
		return
	}
	for _, chat := range chats {
		fmt.Printf("💬 %-40s %s  %s\n", chat.Title, chat.ID, formatTimestamp(chat.UpdatedAt))
	}
	fmt.Printf("\nTotal: %d chats\n", len(chats))
}

// printFolderList renders a folder listing.
func printFolderList(folders []types.Folder) {
	if len(folders) == 0 {
		fmt.Println("No folders found")
		return
	}
	for _, folder := range folders {
		fmt.Printf("📁 %-30s %s\n", folder.Name, folder.ID)
	}
	fmt.Printf("\nTotal: %d folders\n", len(folders))
}

// printKnowledgeList renders a knowledge base listing.
func printKnowledgeList(kbs []types.KnowledgeBase) {
	if len(kbs) == 0 {
		fmt.Println("No knowledge bases found")
		return
	}
	for _, kb := range kbs {
		fmt.Printf("📚 %-30s %s  (%d files)\n", kb.Name, kb.ID, len(kb.Files))
		if kb.Description != "" {
			fmt.Printf("   %s\n", kb.Description)
		}
	}
	fmt.Printf("\nTotal: %d knowledge bases\n", len(kbs))
}

// printFileList renders the files of a knowledge base.
func printFileList(files []types.FileMetadata) {
	if len(files) == 0 {
		fmt.Println("No files found")
		return
	}
	for _, f := range files {
		name := f.ID
		if n, ok := f.Meta["name"].(string); ok && n != "" {
			name = n
		}
		fmt.Printf("📄 %-40s %s\n", name, f.ID)
	}
	fmt.Printf("\nTotal: %d files\n", len(files))
}
