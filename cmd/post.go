package cmd

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/presslane/pressgang/internal/config"
	"github.com/presslane/pressgang/internal/logutil"
	"github.com/presslane/pressgang/internal/press"
	"github.com/presslane/pressgang/internal/press/intent"
	"github.com/presslane/pressgang/internal/press/textutil"
)

var (
	accountFlag  string
	titleFlag    string
	bodyFlag     string
	bodyFileFlag string
	slugFlag     string
	categoryFlag string
	imageFlag    string
	scheduleFlag string
	publishFlag  bool
	dryRun       bool
)

const scheduleLayout = "2006-01-02 15:04"

func newPostCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish one article to a configured account",
		Long: "post sends a title and HTML body to the selected account. Scheduling uses the " +
			"platform's own mechanism when it has one; otherwise the post is stored as a draft " +
			"with the deadline in its title, to be promoted later by 'pressgang reconcile'.",
		RunE: runPost,
		Example: `  pressgang post --account myblog --title "Hello" --body "<p>Hi</p>" --publish
  pressgang post --account kinketsu --title "Payday" --body-file draft.html --schedule "2025-09-01 09:00"
  cat draft.html | pressgang post --account myblog --title "Hello" --publish`,
	}

	cmd.Flags().StringVarP(&accountFlag, "account", "a", "", "Account name from the config file")
	cmd.Flags().StringVarP(&titleFlag, "title", "t", "", "Post title")
	cmd.Flags().StringVar(&bodyFlag, "body", "", "Post body (HTML or plain text)")
	cmd.Flags().StringVar(&bodyFileFlag, "body-file", "", "Read the post body from a file")
	cmd.Flags().StringVar(&slugFlag, "slug", "", "Explicit slug (otherwise derived when slug_mode is auto)")
	cmd.Flags().StringVar(&categoryFlag, "category", "", "Category name as configured for the account")
	cmd.Flags().StringVar(&imageFlag, "image", "", "Path to a featured image")
	cmd.Flags().StringVar(&scheduleFlag, "schedule", "", `Schedule publication at "YYYY-MM-DD HH:MM" local time`)
	cmd.Flags().BoolVar(&publishFlag, "publish", false, "Publish immediately instead of saving a draft")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the resolved action without posting")
	cmd.Flags().SortFlags = false

	cmd.MarkFlagRequired("account")
	cmd.MarkFlagRequired("title")

	return cmd
}

func runPost(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	account, ok := cfg.Accounts[accountFlag]
	if !ok {
		return fmt.Errorf("account %q not found in config", accountFlag)
	}

	title := strings.TrimSpace(titleFlag)
	if title == "" {
		return errors.New("title is required")
	}

	body, err := resolveBody(cmd)
	if err != nil {
		return err
	}
	body = textutil.EnsureBlocks(body)

	codec, err := cfg.Codec()
	if err != nil {
		return err
	}

	in := intent.Intent{PublishNow: publishFlag}
	if scheduleFlag != "" {
		at, err := time.ParseInLocation(scheduleLayout, scheduleFlag, codec.Location())
		if err != nil {
			return fmt.Errorf(`parse --schedule (want "YYYY-MM-DD HH:MM"): %w`, err)
		}
		in.ScheduleAt = at
	}

	caps := press.Capabilities{NativeScheduling: account.SupportsNativeScheduling()}
	resolved := intent.Resolve(in, title, caps, codec)

	if dryRun {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "[dry-run] would post to %s as %s: %q\n", accountFlag, resolved.Status, resolved.Title)
		if !resolved.PublishAt.IsZero() {
			fmt.Fprintf(out, "[dry-run] platform publishes at %s\n", resolved.PublishAt.Format(time.RFC3339))
		}
		if imageFlag != "" {
			fmt.Fprintf(out, "[dry-run] featured image: %s\n", imageFlag)
		}
		return nil
	}

	client, err := account.Publisher(ctx)
	if err != nil {
		return err
	}

	draft := press.Draft{
		Title:     resolved.Title,
		BodyHTML:  body,
		Slug:      resolveSlug(account, title),
		Status:    resolved.Status,
		PublishAt: resolved.PublishAt,
	}

	if categoryFlag != "" {
		id, ok := account.Categories[categoryFlag]
		if !ok {
			return fmt.Errorf("category %q not configured for account %q", categoryFlag, accountFlag)
		}
		draft.CategoryIDs = []int{id}
	}

	if imageFlag != "" {
		if !client.Capabilities().AssetUpload {
			return press.UnsupportedError{Provider: client.Name(), Op: "asset upload"}
		}
		data, err := os.ReadFile(imageFlag)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		assetID, err := client.UploadAsset(ctx, data, filepath.Base(imageFlag), mimeTypeFor(imageFlag, data))
		if err != nil {
			return fmt.Errorf("%s: %w", client.Name(), err)
		}
		draft.FeaturedAssetID = assetID
		logutil.Debugf("uploaded featured image: id=%s", assetID)
	}

	logutil.Infof("posting to %s...", client.Name())
	result, err := client.CreatePost(ctx, draft)
	if err != nil {
		return fmt.Errorf("%s: %w", client.Name(), err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "posted to %s: id=%s status=%s\n", client.Name(), result.ID, result.Status)
	if result.URL != "" {
		fmt.Fprintf(out, "url: %s\n", result.URL)
	}
	return nil
}

func resolveBody(cmd *cobra.Command) (string, error) {
	if bodyFlag != "" && bodyFileFlag != "" {
		return "", errors.New("provide the body either with --body or --body-file, not both")
	}
	if bodyFlag != "" {
		return bodyFlag, nil
	}
	if bodyFileFlag != "" {
		data, err := os.ReadFile(bodyFileFlag)
		if err != nil {
			return "", fmt.Errorf("read body file: %w", err)
		}
		return string(data), nil
	}

	stdin := cmd.InOrStdin()
	if file, ok := stdin.(*os.File); ok {
		info, err := file.Stat()
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if (info.Mode() & os.ModeCharDevice) == 0 {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return "", fmt.Errorf("read stdin: %w", err)
			}
			if body := strings.TrimSpace(string(data)); body != "" {
				return body, nil
			}
		}
	}

	return "", errors.New("body is required")
}

func resolveSlug(account config.Account, title string) string {
	if slugFlag != "" {
		return strings.TrimSpace(slugFlag)
	}
	if strings.EqualFold(strings.TrimSpace(account.SlugMode), "auto") {
		return textutil.Slug(title, textutil.DefaultSlugLen)
	}
	return ""
}

func mimeTypeFor(path string, data []byte) string {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return byExt
	}
	return http.DetectContentType(data)
}
