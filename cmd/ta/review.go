package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/opfail"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/review"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/style"
	"github.com/michaelhunley/TrustedAutonomy-sub000/internal/types"
)

func cmdDraftReview(args []string) {
	if len(args) == 0 {
		printUsage("usage: ta draft review <start|comment|next|finish|list|show> [args...]")
		os.Exit(1)
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "start":
		cmdReviewStart(rest)
	case "comment":
		cmdReviewComment(rest)
	case "next":
		cmdReviewNext(rest)
	case "finish":
		cmdReviewFinish(rest)
	case "list":
		cmdReviewList(rest)
	case "show":
		cmdReviewShow(rest)
	default:
		printUnknown("draft review " + sub)
		os.Exit(1)
	}
}

func cmdReviewStart(args []string) {
	fs := flag.NewFlagSet("draft review start", flag.ExitOnError)
	reviewer := fs.String("reviewer", "", "reviewer identity")
	fs.Parse(flagsFirst(args, nil))
	if fs.NArg() < 1 {
		printUsage("usage: ta draft review start <draft-id> [--reviewer <who>]")
		os.Exit(1)
	}

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:review:start", false, err)
	}
	d, err := ctx.DraftStore.Load(fs.Arg(0))
	if err != nil {
		opfail.Report("draft:review:start", false, err)
	}
	sess, err := review.Start(ctx.ReviewStore, d.ID, *reviewer, d.Changes.Artifacts)
	if err != nil {
		opfail.Report("draft:review:start", false, err)
	}

	recordAudit(ctx, *reviewer, "review.start", "", map[string]string{"session_id": sess.ID, "draft_id": d.ID})
	fmt.Printf("%s %s\n", style.Success("review session"), sess.ID)
	fmt.Printf("  draft:    %s\n", sess.DraftID)
	fmt.Printf("  reviewer: %s\n", sess.Reviewer)
	fmt.Printf("  pending:  %d\n", review.Counts(sess)[types.DispositionPending])
}

func cmdReviewComment(args []string) {
	fs := flag.NewFlagSet("draft review comment", flag.ExitOnError)
	body := fs.String("body", "", "comment text")
	author := fs.String("author", "", "comment author")
	fs.Parse(flagsFirst(args, nil))
	if fs.NArg() < 2 || *body == "" {
		printUsage("usage: ta draft review comment <session-id> <uri> --body <text> [--author <who>]")
		os.Exit(1)
	}

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:review:comment", false, err)
	}
	sess, err := review.Comment(ctx.ReviewStore, fs.Arg(0), fs.Arg(1), *author, *body)
	if err != nil {
		opfail.Report("draft:review:comment", false, err)
	}
	recordAudit(ctx, *author, "review.comment", fs.Arg(1), map[string]string{"session_id": sess.ID})
	fmt.Println(style.Success("comment recorded"))
}

func cmdReviewNext(args []string) {
	if len(args) < 1 {
		printUsage("usage: ta draft review next <session-id>")
		os.Exit(1)
	}
	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:review:next", false, err)
	}
	uri, ok, err := review.Next(ctx.ReviewStore, args[0])
	if err != nil {
		opfail.Report("draft:review:next", false, err)
	}
	if !ok {
		fmt.Println(style.Dim("no pending artifacts remain"))
		return
	}
	fmt.Println(uri)
}

func cmdReviewFinish(args []string) {
	if len(args) < 1 {
		printUsage("usage: ta draft review finish <session-id>")
		os.Exit(1)
	}
	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:review:finish", false, err)
	}
	sess, err := review.Finish(ctx.ReviewStore, args[0])
	if err != nil {
		opfail.Report("draft:review:finish", false, err)
	}
	counts := review.Counts(sess)
	recordAudit(ctx, sess.Reviewer, "review.finish", "", map[string]string{"session_id": sess.ID})
	fmt.Printf("%s %s\n", style.Success("finished review session"), sess.ID)
	for disp, n := range counts {
		fmt.Printf("  %-10s %d\n", disp, n)
	}
}

func cmdReviewList(args []string) {
	fs := flag.NewFlagSet("draft review list", flag.ExitOnError)
	draftID := fs.String("draft", "", "filter by draft id")
	fs.Parse(args)

	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:review:list", false, err)
	}
	sessions, err := ctx.ReviewStore.List(*draftID)
	if err != nil {
		opfail.Report("draft:review:list", false, err)
	}
	if len(sessions) == 0 {
		fmt.Println(style.Dim("no review sessions"))
		return
	}
	headers := []string{"ID", "DRAFT", "REVIEWER", "STATE", "FOCUS"}
	var rows [][]string
	for _, sess := range sessions {
		rows = append(rows, []string{sess.ID, sess.DraftID, sess.Reviewer, string(sess.State), sess.Focus})
	}
	fmt.Println(style.RenderTable(headers, rows, 2))
}

func cmdReviewShow(args []string) {
	if len(args) < 1 {
		printUsage("usage: ta draft review show <session-id>")
		os.Exit(1)
	}
	ctx, err := loadContext()
	if err != nil {
		opfail.Report("draft:review:show", false, err)
	}
	sess, err := ctx.ReviewStore.Load(args[0])
	if err != nil {
		opfail.Report("draft:review:show", false, err)
	}
	fmt.Printf("%s %s\n", style.Heading("review session"), sess.ID)
	fmt.Printf("  draft:    %s\n", sess.DraftID)
	fmt.Printf("  reviewer: %s\n", sess.Reviewer)
	fmt.Printf("  state:    %s\n", sess.State)
	headers := []string{"URI", "DISPOSITION", "COMMENTS"}
	var rows [][]string
	for uri, r := range sess.Reviews {
		rows = append(rows, []string{uri, string(r.Disposition), fmt.Sprintf("%d", len(r.Comments))})
	}
	fmt.Println(style.RenderTable(headers, rows, 2))
	if len(sess.Notes) > 0 {
		fmt.Println(style.Dim("notes:"))
		for _, n := range sess.Notes {
			fmt.Printf("  - %s\n", n)
		}
	}
}
