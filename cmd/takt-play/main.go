package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/taktlab/takt"
	"github.com/taktlab/takt/cmd"
	"github.com/taktlab/takt/oto"
	"github.com/taktlab/takt/seq"
	"github.com/taktlab/takt/version"
)

func main() {
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	directory := flag.String("o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, everything is placed in the same directory where the original song file is.")
	play := flag.Bool("p", false, "Play the input songs (default behaviour when no other output is defined).")
	live := flag.Bool("l", false, "Play the input songs on the real-time sequencer instead of rendering them first; ctrl-c moves to the next song.")
	rawOut := flag.Bool("r", false, "Output the rendered song as .raw file. By default, saves stereo float32 buffer to disk.")
	wavOut := flag.Bool("w", false, "Output the rendered song as .wav file. By default, saves stereo float32 buffer to disk.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*rawOut && !*wavOut {
		*play = true // if the user gives nothing to output, then the default behaviour is just to play the file
	}
	var audioContext takt.AudioContext
	if *play || *live {
		var err error
		audioContext, err = oto.NewContext()
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not acquire audio context: %v\n", err)
			os.Exit(1)
		}
	}
	processSong := func(filename string, song takt.Song) error {
		output := func(extension string, contents []byte) error {
			if *stdout {
				os.Stdout.Write(contents)
				return nil
			}
			_, name := filepath.Split(filename)
			dir := *directory
			if dir == "" {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
				}
			}
			name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
			f := filepath.Join(dir, name)
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %v", dir, err)
			}
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			return nil
		}
		if err := song.Validate(); err != nil {
			return fmt.Errorf("invalid song: %w", err)
		}
		if *live {
			return playLive(audioContext, song)
		}
		buffer, err := seq.Render(song, cmd.Instruments(song))
		if err != nil {
			return fmt.Errorf("rendering the song failed: %w", err)
		}
		var playWaiter takt.CloserWaiter
		if *play {
			playWaiter = audioContext.Play(buffer.Source())
		}
		if *rawOut {
			raw, err := buffer.Raw(*pcm)
			if err != nil {
				return fmt.Errorf("could not generate .raw file: %v", err)
			}
			if err := output(".raw", raw); err != nil {
				return fmt.Errorf("error outputting .raw file: %v", err)
			}
		}
		if *wavOut {
			wav, err := buffer.Wav(*pcm)
			if err != nil {
				return fmt.Errorf("could not generate .wav file: %v", err)
			}
			if err := output(".wav", wav); err != nil {
				return fmt.Errorf("error outputting .wav file: %v", err)
			}
		}
		if *play {
			playWaiter.Wait()
		}
		return nil
	}
	process := func(filename string) error {
		inputBytes, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("could not read file %v: %v", filename, err)
		}
		var song takt.Song
		if errJSON := json.Unmarshal(inputBytes, &song); errJSON != nil {
			if errYaml := yaml.Unmarshal(inputBytes, &song); errYaml != nil {
				return fmt.Errorf("the song could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
			}
		}
		return processSong(filename, song)
	}
	if flag.NArg() == 0 {
		if err := processSong("default.yml", takt.DefaultSong()); err != nil {
			fmt.Fprintf(os.Stderr, "could not play the default song: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	retval := 0
	for _, param := range flag.Args() {
		if info, err := os.Stat(param); err == nil && info.IsDir() {
			jsonfiles, err := filepath.Glob(filepath.Join(param, "*.json"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for json files: %v\n", param, err)
				retval = 1
				continue
			}
			ymlfiles, err := filepath.Glob(filepath.Join(param, "*.yml"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not glob the path %v for yml files: %v\n", param, err)
				retval = 1
				continue
			}
			files := append(ymlfiles, jsonfiles...)
			for _, file := range files {
				err := process(file)
				if err != nil {
					fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
					retval = 1
				}
			}
		} else {
			err := process(param)
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
				retval = 1
			}
		}
	}
	os.Exit(retval)
}

// playLive runs the song on the sequencer clock instead of bouncing it to a
// buffer first, printing the notes as they trigger.
func playLive(audioContext takt.AudioContext, song takt.Song) error {
	broker := seq.NewBroker()
	sequencer := seq.NewSequencer(broker)
	defer sequencer.Close()
	instruments := cmd.Instruments(song)
	sequencer.SetBPM(song.BPM)
	for _, data := range song.Patterns {
		sequencer.AddPattern(data, instruments[data.Patch])
	}
	playWaiter := audioContext.Play(takt.NewMixer(instruments...))
	defer playWaiter.Close()
	fmt.Printf("%d patterns, %d voices, %v bpm; ctrl-c to stop\n", len(song.Patterns), song.TotalVoices(), sequencer.BPM())
	sequencer.Start()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	for {
		select {
		case <-interrupt:
			sequencer.Stop()
			fmt.Println()
			return nil
		case msg := <-broker.ToClient:
			switch e := msg.(type) {
			case seq.NoteOnEvent:
				fmt.Printf("%8.2f  %-4s vel %3d  %s\n", e.Beat, seq.NoteName(e.Note), e.Velocity, e.Pattern)
			case seq.Alert:
				fmt.Fprintf(os.Stderr, "%s: %s\n", e.Priority, e.Message)
			}
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Takt command line utility for playing and rendering .yml song files.\nUsage: %s [flags] [path ...]\nWithout a path, the default song is played.\n", os.Args[0])
	flag.PrintDefaults()
}
