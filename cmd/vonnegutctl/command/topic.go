package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evanmcc/vonnegut/wire"
)

// NewTopicCommand returns the cobra command for "topic".
func NewTopicCommand() *cobra.Command {
	tc := &cobra.Command{
		Use:   "topic <subcommand>",
		Short: "Topic admin commands",
	}

	tc.AddCommand(newTopicMetadataCommand())
	tc.AddCommand(newTopicEnsureCommand())
	tc.AddCommand(newTopicDeleteCommand())
	return tc
}

func newTopicMetadataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <topic> [topic...]",
		Short: "Prints the chain routing for one or more topics",
		Run:   topicMetadataFunc,
	}
}

func newTopicEnsureCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure <topic> <partition1,partition2,...>",
		Short: "Idempotently creates the given partitions of a topic",
		Run:   topicEnsureFunc,
	}
}

func newTopicDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <topic> <partition1,partition2,...>",
		Short: "Deletes the given partitions of a topic from this node",
		Run:   topicDeleteFunc,
	}
}

func topicMetadataFunc(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		exitWithError(exitBadArgs, fmt.Errorf("at least one topic name required"))
	}
	c := mustClient()
	defer c.Close()

	resp, err := c.Metadata(args)
	if err != nil {
		exitWithError(exitError, err)
	}

	nodes := make(map[int32]string, len(resp.Nodes))
	for _, n := range resp.Nodes {
		nodes[n.NodeID] = fmt.Sprintf("%s:%d", n.Host, n.Port)
	}
	for _, t := range resp.Topics {
		fmt.Printf("topic %s:\n", t.Topic)
		for _, p := range t.Partitions {
			fmt.Printf("  partition %d: head=%s tail=%s\n", p.Partition, nodes[p.HeadID], nodes[p.TailID])
		}
	}
}

func topicEnsureFunc(cmd *cobra.Command, args []string) {
	topic, partitions := parseTopicAndPartitions(args)
	c := mustClient()
	defer c.Close()

	resp, err := c.EnsureTopic(topic, partitions)
	if err != nil {
		exitWithError(exitError, err)
	}
	printTopicResult(resp)
}

func topicDeleteFunc(cmd *cobra.Command, args []string) {
	topic, partitions := parseTopicAndPartitions(args)
	c := mustClient()
	defer c.Close()

	resp, err := c.DeleteTopic(topic, partitions)
	if err != nil {
		exitWithError(exitError, err)
	}
	printTopicResult(resp)
}

func parseTopicAndPartitions(args []string) (string, []int32) {
	if len(args) != 2 {
		exitWithError(exitBadArgs, fmt.Errorf("usage: <topic> <partition1,partition2,...>"))
	}
	parts := strings.Split(args[1], ",")
	partitions := make([]int32, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 32)
		if err != nil {
			exitWithError(exitBadArgs, fmt.Errorf("invalid partition %q: %v", p, err))
		}
		partitions[i] = int32(n)
	}
	return args[0], partitions
}

func printTopicResult(resp *wire.SimpleTopicResponse) {
	for _, t := range resp.Topics {
		for _, p := range t.Partitions {
			fmt.Printf("%s-%d: %s\n", t.Topic, p.Partition, wire.ErrorCodeName(p.ErrorCode))
		}
	}
}
