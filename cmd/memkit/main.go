// memkit 命令行入口
//
// 使用方法:
//
//	memkit repl                        # 交互式体验记忆引擎
//	memkit repl --config config.yaml   # 指定配置文件
//	memkit version                     # 显示版本信息
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seedchat/memkit"
	"github.com/seedchat/memkit/config"
	"github.com/seedchat/memkit/types"
)

// 构建时注入
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "repl":
		runRepl(os.Args[2:])
	case "version":
		fmt.Printf("memkit %s (%s)\n", Version, GitCommit)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// runRepl 交互式演示：每行输入作为用户消息写入记忆，并回显增强上下文。
func runRepl(args []string) {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	agentID := fs.String("agent", "repl-agent", "Agent id to ingest under")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	fs.Parse(args)

	logger := newLogger(*verbose)
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	engine, err := memkit.Open(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open memory engine: %v\n", err)
		os.Exit(1)
	}

	conversationID := uuid.NewString()
	fmt.Printf("memkit repl (agent=%s, conversation=%s)\n", *agentID, conversationID)
	fmt.Println("Type a message and press enter; ctrl-d to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		msg := types.Message{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			Content:        line,
			Sender:         types.SenderUser,
			Timestamp:      time.Now(),
		}

		created := engine.ProcessMessage(ctx, *agentID, msg, conversationID)
		if created {
			fmt.Println("[memory created]")
		}

		if text := engine.GenerateEnhancedContext(ctx, *agentID, conversationID, line); text != "" {
			fmt.Println(text)
		}
		cancel()
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func printUsage() {
	fmt.Println(`memkit - agent memory engine

Usage:
  memkit repl [--config path] [--agent id] [--verbose]
  memkit version`)
}
