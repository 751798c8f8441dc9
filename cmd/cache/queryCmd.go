package cache

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dCache/cmd/util"
	"github.com/ValentinKolb/dCache/lib/query"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var queryCmd = &cobra.Command{
	Use:   "query [query] [args...]",
	Short: "Runs a query and prints the result page by page",
	Long: `Runs a query and prints the result page by page.

Without --type the query is run as a fields query and every row is a list
of values. With --type it is run as a Sql query whose rows are values of the
given type.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}

		queryArgs := make([]any, 0, len(args)-1)
		for _, a := range args[1:] {
			queryArgs = append(queryArgs, a)
		}

		var q *query.Query
		if returnType := viper.GetString("type"); returnType != "" {
			q = query.NewSqlQuery(returnType, args[0], queryArgs...)
		} else {
			q = query.NewSqlFieldsQuery(args[0], queryArgs...)
		}

		pageNo := 0
		rowCount := 0
		q.WithPageSize(viper.GetInt("page-size")).WithHandler(query.Handler{
			Page: func(rows []json.RawMessage) {
				pageNo++
				rowCount += len(rows)
				data := pterm.TableData{{"#", "Row"}}
				for i, row := range rows {
					data = append(data, []string{fmt.Sprint(rowCount - len(rows) + i + 1), string(row)})
				}
				pterm.DefaultSection.Printfln("Page %d (%d rows)", pageNo, len(rows))
				_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
			},
			End: func(err error) {
				if err != nil {
					pterm.Error.Printfln("query failed after %d pages: %v", pageNo, err)
					return
				}
				pterm.Success.Printfln("%d rows in %d pages", rowCount, pageNo)
			},
		})

		return rpcCache.Query(cmd.Context(), q)
	},
}

func init() {
	key := "type"
	queryCmd.Flags().String(key, "", util.WrapString("Return type of a Sql query. If empty the query is run as a fields query"))
	key = "page-size"
	queryCmd.Flags().Int(key, query.DefaultPageSize, util.WrapString("Number of rows per page"))
}
