package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/directory"
	"github.com/kozaktomas/attendance/internal/recognition"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Manage students and their enrolled faces",
}

var studentsListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List active students, optionally filtered by name or code",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStudentsList,
}

var studentsAddCmd = &cobra.Command{
	Use:   "add <code> <name>",
	Short: "Add or update a student in the local directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runStudentsAdd,
}

var studentsEnrollCmd = &cobra.Command{
	Use:   "enroll <student-id> <file>",
	Short: "Enroll a student's face",
	Long: `Enroll a face for a student.
The file is a portrait image sent to the face service, or with --embedding
a JSON array of floats holding a precomputed embedding.`,
	Args: cobra.ExactArgs(2),
	RunE: runStudentsEnroll,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsListCmd, studentsAddCmd, studentsEnrollCmd)

	studentsAddCmd.Flags().Int("id", 0, "Student id to create or update (default assigned)")
	studentsAddCmd.Flags().String("email", "", "Email address")
	studentsAddCmd.Flags().Bool("inactive", false, "Store the student as inactive")
	studentsEnrollCmd.Flags().Bool("embedding", false, "The file holds a JSON embedding instead of an image")
	studentsEnrollCmd.Flags().Float64("quality", 1, "Quality recorded with a precomputed embedding")
}

func runStudentsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	students, err := a.students.ListActiveStudents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}
	if len(args) == 1 {
		students = directory.Search(students, args[0], 0)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tNAME\tEMAIL")
	for _, s := range students {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.ID, s.Code, s.Name, s.Email)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d students\n", len(students))
	return nil
}

func runStudentsAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Directory.MySQLURL != "" {
		return errors.New("students are read from the external directory (STUDENT_DIRECTORY_URL); add them there")
	}

	student := &database.Student{
		ID:     int64(mustGetInt(cmd, "id")),
		Code:   args[0],
		Name:   strings.Join(strings.Fields(args[1]), " "),
		Email:  mustGetString(cmd, "email"),
		Status: database.StudentStatusActive,
	}
	if mustGetBool(cmd, "inactive") {
		student.Status = database.StudentStatusInactive
	}

	err = a.store.SaveStudent(ctx, student)
	if errors.Is(err, database.ErrConflict) {
		return fmt.Errorf("student code %s is already taken", student.Code)
	}
	if err != nil {
		return fmt.Errorf("failed to save student: %w", err)
	}
	fmt.Printf("Saved student %d: %s (%s)\n", student.ID, student.Name, student.Code)
	return nil
}

func runStudentsEnroll(cmd *cobra.Command, args []string) error {
	studentID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || studentID <= 0 {
		return fmt.Errorf("invalid student id %q", args[0])
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[1], err)
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	gallery := recognition.NewGallery(a.cfg.Recognition.Threshold)
	if err := gallery.Load(ctx, a.store, ""); err != nil {
		return fmt.Errorf("failed to load face gallery: %w", err)
	}
	faces := recognition.NewClient(a.cfg.Recognition.ServiceURL)
	enroller := recognition.NewEnroller(faces, a.store, a.students, gallery)

	var emb *database.StoredEmbedding
	if mustGetBool(cmd, "embedding") {
		var vector []float32
		if err := json.Unmarshal(data, &vector); err != nil {
			return fmt.Errorf("failed to parse embedding: %w", err)
		}
		emb, err = enroller.EnrollEmbedding(ctx, studentID, vector, mustGetFloat64(cmd, "quality"))
	} else {
		fmt.Printf("Detecting face in %s (%s)...\n", args[1], recognition.DetectMIMEType(data))
		emb, err = enroller.EnrollImage(ctx, studentID, data)
	}
	if err != nil {
		return fmt.Errorf("failed to enroll student %d: %w", studentID, err)
	}

	fmt.Printf("Enrolled embedding %d for student %d (%d dimensions)\n", emb.ID, studentID, len(emb.Embedding))
	fmt.Println("A running server picks up the new face on its next restart; use the API to enroll live")
	return nil
}
