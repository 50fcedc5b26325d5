package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// createRootCmd builds a flag-complete skeleton of the CLI's command tree
// for standalone documentation generation.
func createRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "owui",
		Short: "Open WebUI command line client",
		Long: `Open WebUI command line client

Manage chats, folders and knowledge bases on an Open WebUI server, with an
optional retrieval step that augments prompts with context from your
knowledge bases before they reach the model.`,
		Version: "v0.1.0",
	}

	// Add subcommands
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run as REST API proxy server",
		Long:  "Start a local REST API server that proxies chat, folder and knowledge base operations to the configured Open WebUI instance.",
	}

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Manage chats",
		Long: `Manage chats on the Open WebUI server.

EXAMPLES:
  owui chat create llama3 "Explain goroutines"
  owui chat continue CHAT_ID "And channels?"
  owui chat list
  owui chat rename CHAT_ID "Concurrency notes"
  owui chat delete CHAT_ID`,
	}

	folderCmd := &cobra.Command{
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

	kbCmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage knowledge bases and their files",
		Long: `Manage knowledge bases and their files on the Open WebUI server.

EXAMPLES:
  owui kb create "Handbook"
  owui kb list
  owui kb upload-dir KB_ID ./docs
  owui kb query KB_ID "vacation policy"`,
	}

	// Add flags to match the actual implementation
	rootCmd.PersistentFlags().BoolP("quiet", "q", true, "Quiet mode (DEFAULT - minimal CLI output)")
	rootCmd.PersistentFlags().Bool("normal", false, "Normal mode (show standard output)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose mode (detailed output + debug info)")
	rootCmd.PersistentFlags().StringP("output", "o", "text", "Output format: text or json")
	rootCmd.PersistentFlags().String("log-file", "", "Log to specified file (auto-creates directory)")
	rootCmd.PersistentFlags().String("server-url", "", "Open WebUI server URL (or set OPENWEBUI_URL)")
	rootCmd.PersistentFlags().String("api-key", "", "Open WebUI API key (or set OPENWEBUI_API_KEY)")
	rootCmd.PersistentFlags().String("config", "", "Configuration file path")

	serveCmd.Flags().StringP("port", "p", "8080", "Port for server mode")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(kbCmd)

	return rootCmd
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: gendocs <man|markdown|yaml|rest>")
		os.Exit(1)
	}

	docType := os.Args[1]
	rootCmd := createRootCmd()

	// Create output directories
	docsDir := "docs"
	manDir := filepath.Join(docsDir, "man")
	mdDir := filepath.Join(docsDir, "markdown")
	yamlDir := filepath.Join(docsDir, "yaml")
	restDir := filepath.Join(docsDir, "rest")

	// Ensure directories exist
	for _, dir := range []string{docsDir, manDir, mdDir, yamlDir, restDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	manHeader := &doc.GenManHeader{
		Title:   "OWUI",
		Section: "1",
		Manual:  "OWUI Manual",
		Source:  "OWUI v0.1.0",
	}

	switch docType {
	case "man":
		fmt.Println("Generating man pages...")
		if err := doc.GenManTree(rootCmd, manHeader, manDir); err != nil {
			log.Fatalf("Failed to generate man pages: %v", err)
		}
		fmt.Printf("Man pages generated in %s/\n", manDir)

	case "markdown":
		fmt.Println("Generating markdown documentation...")
		if err := doc.GenMarkdownTree(rootCmd, mdDir); err != nil {
			log.Fatalf("Failed to generate markdown docs: %v", err)
		}
		fmt.Printf("Markdown documentation generated in %s/\n", mdDir)

	case "yaml":
		fmt.Println("Generating YAML documentation...")
		if err := doc.GenYamlTree(rootCmd, yamlDir); err != nil {
			log.Fatalf("Failed to generate YAML docs: %v", err)
		}
		fmt.Printf("YAML documentation generated in %s/\n", yamlDir)

	case "rest":
		fmt.Println("Generating reStructuredText documentation...")
		if err := doc.GenReSTTree(rootCmd, restDir); err != nil {
			log.Fatalf("Failed to generate ReST docs: %v", err)
		}
		fmt.Printf("reStructuredText documentation generated in %s/\n", restDir)

	case "all":
		fmt.Println("Generating all documentation formats...")

		if err := doc.GenManTree(rootCmd, manHeader, manDir); err != nil {
			log.Fatalf("Failed to generate man pages: %v", err)
		}
		if err := doc.GenMarkdownTree(rootCmd, mdDir); err != nil {
			log.Fatalf("Failed to generate markdown docs: %v", err)
		}
		if err := doc.GenYamlTree(rootCmd, yamlDir); err != nil {
			log.Fatalf("Failed to generate YAML docs: %v", err)
		}
		if err := doc.GenReSTTree(rootCmd, restDir); err != nil {
			log.Fatalf("Failed to generate ReST docs: %v", err)
		}

		fmt.Printf("All documentation formats generated in %s/\n", docsDir)

	default:
		fmt.Printf("Unknown documentation type: %s\n", docType)
		fmt.Println("Available types: man, markdown, yaml, rest, all")
		os.Exit(1)
	}
}
