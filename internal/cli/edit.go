package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mgpai22/trimsub/internal/alignment"
	"github.com/mgpai22/trimsub/internal/audio"
	"github.com/mgpai22/trimsub/internal/chapters"
	"github.com/mgpai22/trimsub/internal/cutlist"
	"github.com/mgpai22/trimsub/internal/llm"
	"github.com/mgpai22/trimsub/internal/logging"
	"github.com/mgpai22/trimsub/internal/remap"
	"github.com/mgpai22/trimsub/internal/subtitle"
	"github.com/mgpai22/trimsub/internal/timecode"
	"github.com/mgpai22/trimsub/internal/video"
)

var editCmd = &cobra.Command{
	Use:   "edit [video_file]",
	Short: "Transcribe, clean up, cut and chapter a recording",
	Long: `Run the whole editing workflow on a video:

  1. transcribe   generate <name>.srt (skipped with --srt)
  2. correct      fix transcription errors, <name>_corrected.srt
  3. analyze      ask the LLM for ranges to remove, <name>_ranges.json
  4. cut          render cleaned_<name> without those ranges
  5. remap        shift the subtitles onto the cut, <name>_remapped.srt
  6. check        validate the remapped subtitles
  7. chapters     write <name>_chapters.txt

With --no-cut only transcription, correction and chapters run. A failed
correction or chapter step is reported and the workflow carries on; any
other failure stops it.

Examples:
  trimsub edit webinar.mp4 --topic "Intro to eBPF"
  trimsub edit webinar.mp4 --no-cut
  trimsub edit webinar.mp4 --srt webinar.srt -p anthropic`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)

	addLLMFlags(editCmd)
	addTranscribeFlags(editCmd)
	editCmd.Flags().
		String("srt", "", "Use this SRT instead of transcribing")
	editCmd.Flags().
		String("topic", "", "What the recording is about")
	editCmd.Flags().
		Bool("no-cut", false, "Only transcribe, correct and generate chapters")
	editCmd.Flags().
		Bool("no-correct", false, "Skip the correction step")
	editCmd.Flags().
		Bool("media", true, "Attach the audio to the analysis request (Gemini only)")
	editCmd.Flags().
		Int("concurrency", 0, "Number of parallel correction requests (default from config, 3)")
	editCmd.Flags().
		Int("batch-size", 0, "Subtitles per correction request (default from config, 50)")
}

type stepStatus string

const (
	stepDone    stepStatus = "done"
	stepFailed  stepStatus = "failed"
	stepSkipped stepStatus = "skipped"
)

type stepRecord struct {
	Name    string
	Status  stepStatus
	Output  string
	Elapsed time.Duration
}

// workflow times and records each step of an edit run
type workflow struct {
	steps   []stepRecord
	session *llm.Session
	log     *logging.Logger
}

func newWorkflow(log *logging.Logger) *workflow {
	return &workflow{session: llm.NewSession(), log: log}
}

// step runs fn and records its outcome. fn returns the path it produced.
func (w *workflow) step(name string, fn func() (string, error)) error {
	w.log.Infow("Starting step", "step", name)
	start := time.Now()
	output, err := fn()
	rec := stepRecord{Name: name, Status: stepDone, Output: output, Elapsed: time.Since(start)}
	if err != nil {
		rec.Status = stepFailed
		w.log.Errorw("Step failed", "step", name, "elapsed", rec.Elapsed.Round(time.Millisecond), "error", err)
	} else {
		w.log.Infow("Step complete", "step", name, "elapsed", rec.Elapsed.Round(time.Millisecond), "output", output)
	}
	w.steps = append(w.steps, rec)
	return err
}

func (w *workflow) skip(name, reason string) {
	w.log.Infow("Skipping step", "step", name, "reason", reason)
	w.steps = append(w.steps, stepRecord{Name: name, Status: stepSkipped, Output: reason})
}

func (w *workflow) summary(out io.Writer, total time.Duration) {
	rows := make([][]string, 0, len(w.steps))
	for _, s := range w.steps {
		elapsed := ""
		if s.Status != stepSkipped {
			elapsed = s.Elapsed.Round(10 * time.Millisecond).String()
		}
		rows = append(rows, []string{s.Name, string(s.Status), elapsed, s.Output})
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, renderTable(
		out,
		[]string{"Step", "Status", "Time", "Output"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
	writeUsage(out, w.session)
	fmt.Fprintf(out, "Total time: %s\n", total.Round(10*time.Millisecond))
}

func runEdit(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	ctx := cmd.Context()
	started := time.Now()

	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", videoPath)
	}
	if !audio.IsVideoFile(videoPath) {
		logger.Warnw("Input does not look like a video file", "path", videoPath)
	}

	srtFlag, _ := cmd.Flags().GetString("srt")
	topic, _ := cmd.Flags().GetString("topic")
	noCut, _ := cmd.Flags().GetBool("no-cut")
	noCorrect, _ := cmd.Flags().GetBool("no-correct")
	attachMedia, _ := cmd.Flags().GetBool("media")
	language, _ := cmd.Flags().GetString("language")

	settings, err := resolveLLM(cmd)
	if err != nil {
		return err
	}
	var ts transcribeSettings
	if srtFlag == "" {
		if ts, err = resolveTranscribe(cmd); err != nil {
			return err
		}
	}

	client, err := newLLMClient(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", settings.Provider, err)
	}

	runID := uuid.NewString()
	log := logger.With("run_id", runID)
	log.Infow("Starting edit workflow",
		"video", videoPath,
		"provider", settings.Provider,
		"model", client.Model(),
		"no_cut", noCut,
		"topic", topic,
	)

	wf := newWorkflow(log)
	defer func() { wf.summary(os.Stdout, time.Since(started)) }()

	// 1. transcribe
	srtPath := srtFlag
	var track subtitle.Track
	if srtFlag != "" {
		wf.skip("transcribe", "using "+srtFlag)
		if track, err = loadTrack(srtFlag, false); err != nil {
			return err
		}
	} else {
		srtPath = subtitle.SiblingPath(videoPath, "", ".srt")
		err = wf.step("transcribe", func() (string, error) {
			generated, result, err := transcribeMedia(ctx, videoPath, ts)
			if err != nil {
				return "", err
			}
			if result.Usage.InputTokens > 0 || result.Usage.OutputTokens > 0 {
				wf.session.Add("transcribe", result.Usage)
			}
			track = generated
			return srtPath, subtitle.WriteFile(srtPath, track)
		})
		if err != nil {
			return err
		}
	}
	if len(track) == 0 {
		return fmt.Errorf("no subtitles to work with in %s", srtPath)
	}

	// 2. correct
	if noCorrect {
		wf.skip("correct", "--no-correct")
	} else {
		correctedPath := subtitle.SiblingPath(srtPath, "_corrected", ".srt")
		opts := correctOptions(cmd)
		err := wf.step("correct", func() (string, error) {
			corrected, _, usage, err := correctTrack(ctx, client, track, opts)
			wf.session.Add("correct", usage)
			if err != nil {
				return "", err
			}
			track = corrected
			return correctedPath, subtitle.WriteFile(correctedPath, corrected)
		})
		if err != nil {
			log.Warnw("Continuing with the uncorrected subtitles")
		}
	}

	finalTrack := track
	if noCut {
		wf.skip("analyze", "--no-cut")
		wf.skip("cut", "--no-cut")
		wf.skip("remap", "--no-cut")
	} else {
		// 3. analyze
		var payload *cutlist.Payload
		rangesPath := subtitle.SiblingPath(srtPath, "_ranges", ".json")
		mediaPath := ""
		if attachMedia && settings.Provider == llm.ProviderGemini {
			mediaPath = videoPath
		}
		err := wf.step("analyze", func() (string, error) {
			p, usage, err := proposeCuts(cmd, client, track, mediaPath, topic, "", rangesPath)
			wf.session.Add("analyze", usage)
			payload = p
			return rangesPath, err
		})
		if err != nil {
			return err
		}

		// 4. cut
		var plan *cutPlan
		outputVideo := video.OutputPath(videoPath, payload.Mode)
		if len(payload.Ranges) == 0 {
			wf.skip("cut", "no ranges proposed")
			wf.skip("remap", "no ranges proposed")
		} else {
			err = wf.step("cut", func() (string, error) {
				info, err := probeVideo(ctx, videoPath)
				if err != nil {
					return "", err
				}
				duration := timecode.FromDuration(info.Duration)
				if plan, err = planCuts(payload, "", duration, false); err != nil {
					return "", err
				}
				logCutWarnings(plan.Warnings)
				_, err = renderCut(cmd, info, outputVideo, plan, 2)
				return outputVideo, err
			})
			if err != nil {
				return err
			}

			// 5. remap
			remappedPath := subtitle.SiblingPath(srtPath, "_remapped", ".srt")
			err = wf.step("remap", func() (string, error) {
				out, report, err := remap.Apply(track, plan.Removal, remap.MinDuration(cfg.MinDuration()))
				if err != nil {
					return "", err
				}
				log.Infow("Remapped subtitles",
					"kept", report.Kept,
					"dropped", report.Dropped,
					"removed", report.Removed,
				)
				finalTrack = out
				return remappedPath, subtitle.WriteFile(remappedPath, out)
			})
			if err != nil {
				return err
			}
		}
	}

	// 6. check
	_ = wf.step("check", func() (string, error) {
		violations := alignment.Validate(finalTrack)
		for _, v := range violations {
			log.Warnw("Alignment problem", "detail", v.String())
		}
		if len(violations) > 0 {
			return "", fmt.Errorf("%d alignment violations", len(violations))
		}
		return "ok", nil
	})

	// 7. chapters
	chaptersPath := subtitle.SiblingPath(srtPath, "_chapters", ".txt")
	err = wf.step("chapters", func() (string, error) {
		result, err := writeChapters(ctx, client, finalTrack, chapters.Options{
			Language: language,
			Topic:    topic,
		}, chaptersPath)
		if result != nil {
			wf.session.Add("chapters", result.Usage)
		}
		return chaptersPath, err
	})
	if errors.Is(err, chapters.ErrNoChapters) {
		log.Warnw("Model reply contained no chapters")
	}

	absDir, _ := filepath.Abs(filepath.Dir(videoPath))
	log.Infow("Edit workflow finished", "dir", absDir)
	return nil
}
