package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/volatiletech/null/v8"

	"github.com/academia-labs/academia/core"
	"github.com/academia-labs/academia/core/course"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// pathID parses the `name` path param as a positive id.
func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func queryFloat(ctx echo.Context, name string) (null.Float64, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return null.Float64{}, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return null.Float64{}, core.NewValidationError(nil, core.FieldError{Field: name, Error: name + " must be a number"})
	}
	return null.Float64From(f), nil
}

// bindCourseFilter reads the course search query params.
func bindCourseFilter(ctx echo.Context) (course.QueryFilter, error) {
	filter := course.QueryFilter{
		Search:     ctx.QueryParam("search"),
		Type:       course.Type(ctx.QueryParam("type")),
		Difficulty: course.Difficulty(ctx.QueryParam("difficulty")),
		University: ctx.QueryParam("university"),
		Topic:      ctx.QueryParam("topic"),
	}
	var err error
	if filter.MinPrice, err = queryFloat(ctx, "min_price"); err != nil {
		return course.QueryFilter{}, err
	}
	if filter.MaxPrice, err = queryFloat(ctx, "max_price"); err != nil {
		return course.QueryFilter{}, err
	}
	return filter, nil
}

// bindDeleteRequest reads `force` and `replace_with` off the query string.
func bindDeleteRequest(ctx echo.Context, courseID int) (course.DeleteRequest, error) {
	req := course.DeleteRequest{CourseID: courseID}
	if val := ctx.QueryParam("force"); val != "" {
		force, err := strconv.ParseBool(val)
		if err != nil {
			return req, core.NewValidationError(nil, core.FieldError{Field: "force", Error: "force must be a boolean"})
		}
		req.Force = force
	}
	if val := ctx.QueryParam("replace_with"); val != "" {
		id, err := strconv.Atoi(val)
		if err != nil || id <= 0 {
			return req, core.NewValidationError(nil, core.FieldError{Field: "replace_with", Error: "replace_with must be a course id"})
		}
		req.ReplaceWith = &id
	}
	return req, nil
}
