package graph

import (
	"time"

	"github.com/graphql-go/graphql"

	"github.com/hitoshi/dreamlog/internal/model"
)

// NewSchema はResolverに束縛されたGraphQLスキーマを構築する。
func NewSchema(r *Resolver) (graphql.Schema, error) {
	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*model.User).ID, nil
				},
			},
			"username": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*model.User).Username, nil
				},
			},
			"email": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*model.User).Email, nil
				},
			},
		},
	})

	dreamType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Dream",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*model.Dream).ID, nil
				},
			},
			"title": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*model.Dream).Title, nil
				},
			},
			"content": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*model.Dream).Content, nil
				},
			},
			"date": &graphql.Field{
				Type: graphql.NewNonNull(graphql.DateTime),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*model.Dream).Date, nil
				},
			},
			"emotions": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*model.Dream).Emotions, nil
				},
			},
			"themes": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*model.Dream).Themes, nil
				},
			},
			"userId": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*model.Dream).UserID, nil
				},
			},
			"user": &graphql.Field{
				Type: userType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return r.OwnerOfDream(p.Context, p.Source.(*model.Dream).UserID)
				},
			},
		},
	})

	// User.dreamsは循環参照のため後付けする
	userType.AddFieldConfig("dreams", &graphql.Field{
		Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(dreamType))),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return r.DreamsOfUser(p.Context, p.Source.(*model.User).ID)
		},
	})

	authPayloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthPayload",
		Fields: graphql.Fields{
			"token": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*AuthPayload).Token, nil
				},
			},
			"user": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*AuthPayload).User, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"getUser": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := r.GetUser(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					if user == nil {
						return nil, nil
					}
					return user, nil
				},
			},
			"getDream": &graphql.Field{
				Type: dreamType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					dream, err := r.GetDream(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					if dream == nil {
						return nil, nil
					}
					return dream, nil
				},
			},
			"getUserDreams": &graphql.Field{
				Type: graphql.NewList(graphql.NewNonNull(dreamType)),
				Args: graphql.FieldConfigArgument{
					"userId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return r.GetUserDreams(p.Context, p.Args["userId"].(string))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"signup": &graphql.Field{
				Type: graphql.NewNonNull(authPayloadType),
				Args: graphql.FieldConfigArgument{
					"username": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return r.Signup(p.Context,
						p.Args["username"].(string),
						p.Args["email"].(string),
						p.Args["password"].(string),
					)
				},
			},
			"login": &graphql.Field{
				Type: graphql.NewNonNull(authPayloadType),
				Args: graphql.FieldConfigArgument{
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return r.Login(p.Context,
						p.Args["email"].(string),
						p.Args["password"].(string),
					)
				},
			},
			"createDream": &graphql.Field{
				Type: graphql.NewNonNull(dreamType),
				Args: graphql.FieldConfigArgument{
					"title":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"content":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"date":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.DateTime)},
					"emotions": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
					"themes":   &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					input := CreateDreamInput{
						Title:    p.Args["title"].(string),
						Content:  p.Args["content"].(string),
						Date:     p.Args["date"].(time.Time),
						Emotions: stringList(p.Args["emotions"]),
						Themes:   stringList(p.Args["themes"]),
					}
					return r.CreateDream(p.Context, input)
				},
			},
			"updateDream": &graphql.Field{
				Type: graphql.NewNonNull(dreamType),
				Args: graphql.FieldConfigArgument{
					"id":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"title":    &graphql.ArgumentConfig{Type: graphql.String},
					"content":  &graphql.ArgumentConfig{Type: graphql.String},
					"emotions": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
					"themes":   &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					upd := &model.DreamUpdate{
						Title:    optionalString(p.Args, "title"),
						Content:  optionalString(p.Args, "content"),
						Emotions: stringList(p.Args["emotions"]),
						Themes:   stringList(p.Args["themes"]),
					}
					return r.UpdateDream(p.Context, p.Args["id"].(string), upd)
				},
			},
			"deleteDream": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return r.DeleteDream(p.Context, p.Args["id"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// stringList はGraphQL引数の文字列リストを[]stringへ変換する。
// 引数が渡されなかった場合はnilを返す（部分更新の「未指定」を表す）。
func stringList(arg interface{}) []string {
	if arg == nil {
		return nil
	}
	items, ok := arg.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// optionalString は省略可能な文字列引数を*stringへ変換する。
func optionalString(args map[string]interface{}, key string) *string {
	v, ok := args[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}
